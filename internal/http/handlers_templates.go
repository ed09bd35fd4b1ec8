package http

import (
	"net/http"

	"saldo/internal/core"
	"saldo/internal/storage"
)

type overrideRequest struct {
	Amount *core.Money `json:"amount"`
}

type splitRequest struct {
	From   core.YearMonth `json:"from"`
	Amount core.Money     `json:"amount"`
}

type splitResponse struct {
	Original  core.Template `json:"original"`
	Successor core.Template `json:"successor"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templates.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if templates == nil {
		templates = []core.Template{}
	}
	NewJSONResponse().Body(templates).Write(w)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.templates.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t core.Template
	if !decodeBody(w, r, &t) {
		return
	}
	created, err := s.templates.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/templates/"+created.ID).
		Body(created).
		Write(w)
}

// handleUpdateTemplate replaces a template; the path ID wins over the body's.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var t core.Template
	if !decodeBody(w, r, &t) {
		return
	}
	t.ID = pathVar(r, "id")
	updated, err := s.templates.Update(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(updated).Write(w)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.Delete(r.Context(), pathVar(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r, "month")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var req overrideRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Amount == nil {
		BadRequestError("amount is required").Write(w)
		return
	}
	t, err := s.templates.SetOverride(r.Context(), pathVar(r, "id"), month, *req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	month, err := pathMonth(r, "month")
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, err := s.templates.ClearOverride(r.Context(), pathVar(r, "id"), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

// styleMonth is zero for the template-wide style route.
func styleMonth(r *http.Request) (core.YearMonth, error) {
	if pathVar(r, "month") == "" {
		return core.YearMonth{}, nil
	}
	return pathMonth(r, "month")
}

func (s *Server) handleSetStyle(w http.ResponseWriter, r *http.Request) {
	month, err := styleMonth(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	var st core.Style
	if !decodeBody(w, r, &st) {
		return
	}
	t, err := s.templates.SetStyle(r.Context(), pathVar(r, "id"), month, st)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleClearStyle(w http.ResponseWriter, r *http.Request) {
	month, err := styleMonth(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	t, err := s.templates.ClearStyle(r.Context(), pathVar(r, "id"), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	original, successor, err := s.templates.SplitSeries(r.Context(), pathVar(r, "id"), req.From, req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/templates/"+successor.ID).
		Body(splitResponse{Original: original, Successor: successor}).
		Write(w)
}

func (s *Server) handleToggleReconciled(w http.ResponseWriter, r *http.Request) {
	t, err := s.templates.ToggleReconciled(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := s.templates.ListPaymentMethods(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if methods == nil {
		methods = []core.PaymentMethod{}
	}
	NewJSONResponse().Body(methods).Write(w)
}

// handleSavePaymentMethod upserts by name; the path name wins over the body's.
func (s *Server) handleSavePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var pm core.PaymentMethod
	if !decodeBody(w, r, &pm) {
		return
	}
	pm.Name = pathVar(r, "name")
	saved, err := s.templates.SavePaymentMethod(r.Context(), pm)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := s.templates.DeletePaymentMethod(r.Context(), pathVar(r, "name")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.templates.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().
		Header("Content-Disposition", `attachment; filename="saldo-export.json"`).
		Body(snap).
		Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snap storage.Snapshot
	if !decodeBody(w, r, &snap) {
		return
	}
	if err := s.templates.Import(r.Context(), snap); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]int{
		"templates":      len(snap.Templates),
		"paymentMethods": len(snap.PaymentMethods),
	}).Write(w)
}
