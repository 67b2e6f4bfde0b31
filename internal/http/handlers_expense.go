package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"spendlens/internal/core"
	"spendlens/internal/log"
)

// expenseList is the body of GET /api/users/{userID}/expenses.
type expenseList struct {
	UserID   string            `json:"userId"`
	Count    int               `json:"count"`
	Expenses []core.RawExpense `json:"expenses"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	exp, err := parseExpense(r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	saved, err := s.expenses.CreateExpense(r.Context(), exp)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}

	logWritten(r, log.OpCreate, saved)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+saved.ID).
		Body(saved).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exp, err := parseExpense(r)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}

	saved, err := s.expenses.UpdateExpense(r.Context(), id, exp)
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	logWritten(r, log.OpUpdate, saved)
	NewJSONResponse().Body(saved).Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := s.expenses.DeleteExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	logWritten(r, log.OpDelete, removed)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	records, err := s.expenses.SearchExpenses(r.Context(), userID, parseExpenseFilter(r.URL.Query()))
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(expenseList{
		UserID:   userID,
		Count:    len(records),
		Expenses: records,
	}).Write(w)
}

// logWritten records a successful write on the request scoped logger.
func logWritten(r *http.Request, op string, e core.RawExpense) {
	amount := ""
	if d, ok := e.AmountValue(); ok {
		amount = d.String()
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogExpenseWritten(r.Context(), op, e.UserID, e.ID, e.Category, amount)
}
