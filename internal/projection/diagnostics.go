package projection

import (
	"errors"
	"fmt"

	"saldo/internal/core"
)

// Diagnostic explains why a template was left out of a computation.
type Diagnostic struct {
	TemplateID  string
	Description string
	Err         error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("template %s (%q) excluded: %v", d.TemplateID, d.Description, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// Diagnostics is the list of templates skipped by one computation.
type Diagnostics []Diagnostic

// Err joins the diagnostics into a single error, or returns nil.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	errs := make([]error, len(ds))
	for i, d := range ds {
		errs[i] = d
	}
	return errors.Join(errs...)
}

func diagnose(t core.Template, err error) Diagnostic {
	return Diagnostic{TemplateID: t.ID, Description: t.Description, Err: err}
}
