package http

import (
	"net/http"

	"saldo/internal/core"
	"saldo/internal/services"
)

type projectionResponse struct {
	Start   core.YearMonth        `json:"start"`
	Opening core.Money            `json:"opening"`
	Months  []core.MonthlySummary `json:"months"`
	// Skipped counts templates left out because they are invalid.
	Skipped int `json:"skipped,omitempty"`
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	q, err := ParseProjectionQuery(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if q.Start.IsZero() {
		q.Start = s.projections.CurrentMonth()
	}
	p, err := s.projections.Project(r.Context(), services.ProjectionRequest{
		Start:   q.Start,
		Months:  q.Months,
		Opening: q.Opening,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	months := p.Summaries
	if months == nil {
		months = []core.MonthlySummary{}
	}
	NewJSONResponse().Body(projectionResponse{
		Start:   q.Start,
		Opening: q.Opening,
		Months:  months,
		Skipped: len(p.Diagnostics),
	}).Write(w)
}

func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r, "month")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	occ, err := s.projections.Occurrences(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if occ == nil {
		occ = []core.Occurrence{}
	}
	NewJSONResponse().Body(occ).Write(w)
}

func (s *Server) handleStatements(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r, "month")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	groups, err := s.projections.Statements(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []core.StatementGroup{}
	}
	NewJSONResponse().Body(groups).Write(w)
}

func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r, "month")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rec, err := s.projections.Reconciliation(r.Context(), month, pathVar(r, "method"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(rec).Write(w)
}
