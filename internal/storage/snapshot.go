package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"saldo/internal/core"
)

// Snapshot is the export document: the same shape the web client syncs.
type Snapshot struct {
	Templates      []core.Template      `json:"transactions"`
	PaymentMethods []core.PaymentMethod `json:"paymentMethods"`
}

// ReadSnapshot decodes an export document. Malformed templates fail the
// whole read.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}

// Export reads the full contents of a store.
func Export(ctx context.Context, st Store) (Snapshot, error) {
	templates, err := st.ListTemplates(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list templates: %w", err)
	}
	methods, err := st.ListPaymentMethods(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list payment methods: %w", err)
	}
	return Snapshot{Templates: templates, PaymentMethods: methods}, nil
}

// Import upserts every method and template of s into st, methods first.
func Import(ctx context.Context, st Store, s Snapshot) error {
	for _, pm := range s.PaymentMethods {
		if err := pm.Validate(); err != nil {
			return fmt.Errorf("payment method %q: %w", pm.Name, err)
		}
		if err := st.UpsertPaymentMethod(ctx, pm); err != nil {
			return fmt.Errorf("import payment method %q: %w", pm.Name, err)
		}
	}
	for _, t := range s.Templates {
		if t.ID == "" {
			return fmt.Errorf("template %q: missing id", t.Description)
		}
		if err := st.UpsertTemplate(ctx, t); err != nil {
			return fmt.Errorf("import template %s: %w", t.ID, err)
		}
	}
	return nil
}
