package http

import (
	"net/http"

	applog "spendsmart/internal/log"
	"spendsmart/internal/session"
)

type budgetJSON struct {
	ID       int64   `json:"id"`
	Category string  `json:"category"`
	Limit    float64 `json:"limit"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.CurrentUser(r.Context())

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.ComponentBudget, applog.OpUpdate, err)
		return
	}

	id, err := s.budgets.Set(r.Context(), userID, p.Get("category"), p.Get("limit"))
	if err != nil {
		writeError(w, r, applog.ComponentBudget, applog.OpUpdate, err)
		return
	}

	NewJSONResponse().Message("budget set").Field("id", id).Write(w)
}

// handleGetBudgets serves both /get_budget and /get_budgets. Anonymous
// callers get {}.
func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	out := map[string]float64{}

	if userID, ok := session.CurrentUser(r.Context()); ok {
		all, err := s.budgets.GetAll(r.Context(), userID)
		if err != nil {
			writeError(w, r, applog.ComponentBudget, applog.OpList, err)
			return
		}
		out = all
	}

	NewJSONResponse().Payload(out).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	out := []budgetJSON{}

	if userID, ok := session.CurrentUser(r.Context()); ok {
		list, err := s.budgets.List(r.Context(), userID)
		if err != nil {
			writeError(w, r, applog.ComponentBudget, applog.OpList, err)
			return
		}
		for _, b := range list {
			out = append(out, budgetJSON{ID: b.ID, Category: b.Category, Limit: b.Limit})
		}
	}

	NewJSONResponse().Payload(out).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.CurrentUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.ComponentBudget, applog.OpDelete, err)
		return
	}

	if err := s.budgets.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, applog.ComponentBudget, applog.OpDelete, err)
		return
	}

	NewJSONResponse().Message("budget deleted").Write(w)
}
