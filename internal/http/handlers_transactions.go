package http

import (
	"net/http"

	"spendsmart/internal/core"
	applog "spendsmart/internal/log"
	"spendsmart/internal/services"
	"spendsmart/internal/session"
)

type transactionJSON struct {
	ID       int64   `json:"id"`
	Amount   float64 `json:"amount"`
	Type     string  `json:"type"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:       t.ID,
		Amount:   t.Amount,
		Type:     string(t.Type),
		Category: t.Category,
		Date:     t.Date,
	}
}

// handleListTransactions returns [] for anonymous callers.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	out := []transactionJSON{}

	userID, ok := session.CurrentUser(r.Context())
	if ok {
		list, err := s.ledger.List(r.Context(), userID)
		if err != nil {
			writeError(w, r, applog.ComponentLedger, applog.OpList, err)
			return
		}
		for _, t := range list {
			out = append(out, toTransactionJSON(t))
		}
	}

	NewJSONResponse().Payload(out).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.CurrentUser(r.Context())

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.ComponentLedger, applog.OpCreate, err)
		return
	}

	id, err := s.ledger.Add(r.Context(), userID, services.TransactionInput{
		Amount:   p.Get("amount"),
		Type:     p.Get("type"),
		Category: p.Get("category"),
		Date:     p.Get("date"),
	})
	if err != nil {
		writeError(w, r, applog.ComponentLedger, applog.OpCreate, err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Message("transaction added").
		Field("id", id).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.CurrentUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.ComponentLedger, applog.OpUpdate, err)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, applog.ComponentLedger, applog.OpUpdate, err)
		return
	}

	_, err = s.ledger.Update(r.Context(), userID, id, services.TransactionChanges{
		Amount:   p.Lookup("amount"),
		Type:     p.Lookup("type"),
		Category: p.Lookup("category"),
		Date:     p.Lookup("date"),
	})
	if err != nil {
		writeError(w, r, applog.ComponentLedger, applog.OpUpdate, err)
		return
	}

	NewJSONResponse().Message("transaction updated").Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, _ := session.CurrentUser(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.ComponentLedger, applog.OpDelete, err)
		return
	}

	if err := s.ledger.Delete(r.Context(), userID, id); err != nil {
		writeError(w, r, applog.ComponentLedger, applog.OpDelete, err)
		return
	}

	NewJSONResponse().Message("transaction deleted").Write(w)
}
