// This file implements helpers for reading path variables, query strings and
// JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"saldo/internal/core"
	"saldo/internal/services"
)

// maxBodyBytes bounds every request body; imports are the largest.
const maxBodyBytes = 8 << 20

// decodeBody reads a JSON body into v. On failure it writes the error
// response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			BadRequestError("request body is empty").Write(w)
		case errors.Is(err, core.ErrRecurringInstallment):
			ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
		default:
			BadRequestError(fmt.Sprintf("malformed request body: %v", err)).Write(w)
		}
		return false
	}
	return true
}

// pathVar returns a trimmed path variable.
func pathVar(r *http.Request, name string) string {
	return strings.TrimSpace(mux.Vars(r)[name])
}

// pathMonth parses a {month} variable given as YYYY-MM or a month label.
func pathMonth(r *http.Request, name string) (core.YearMonth, error) {
	raw := pathVar(r, name)
	if raw == "" {
		return core.YearMonth{}, services.ErrMissingMonth
	}
	return core.ParseMonthKey(raw)
}

// ProjectionQuery holds the parsed /api/projection query string.
type ProjectionQuery struct {
	Start   core.YearMonth
	Months  int
	Opening core.Money
}

// ParseProjectionQuery reads start, months and opening. Absent values stay
// zero so the service applies its defaults.
func ParseProjectionQuery(query url.Values) (ProjectionQuery, error) {
	var q ProjectionQuery
	if v := strings.TrimSpace(query.Get("start")); v != "" {
		ym, err := core.ParseYearMonth(v)
		if err != nil {
			return ProjectionQuery{}, fmt.Errorf("start: %w", err)
		}
		q.Start = ym
	}
	if v := strings.TrimSpace(query.Get("months")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return ProjectionQuery{}, fmt.Errorf("months: must be a non-negative integer, got %q", v)
		}
		q.Months = n
	}
	if v := strings.TrimSpace(query.Get("opening")); v != "" {
		m, err := core.ParseMoney(v)
		if err != nil {
			return ProjectionQuery{}, fmt.Errorf("opening: %w", err)
		}
		q.Opening = m
	}
	return q, nil
}
