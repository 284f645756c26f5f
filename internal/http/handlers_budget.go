package http

import (
	"net/http"

	"spendpoints/internal/core"
)

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "create_category", err)
		return
	}
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_category", err)
		return
	}
	limit, err := req.Limit.toLimit()
	if err != nil {
		respondError(w, r, "create_category", err)
		return
	}
	c, err := s.services.Categories.Create(r.Context(), userID, sanitizeInput(req.Name), limit)
	if err != nil {
		respondError(w, r, "create_category", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toCategory(c))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "list_categories", err)
		return
	}
	categories, err := s.services.Categories.List(r.Context(), userID)
	if err != nil {
		respondError(w, r, "list_categories", err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategory(c))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleUpdateLimit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "update_limit", err)
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		respondError(w, r, "update_limit", err)
		return
	}
	var req limitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "update_limit", err)
		return
	}
	limit, err := req.toLimit()
	if err != nil {
		respondError(w, r, "update_limit", err)
		return
	}
	if err := s.services.Categories.UpdateLimit(r.Context(), userID, categoryID, limit); err != nil {
		respondError(w, r, "update_limit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateExpenditure(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "create_expenditure", err)
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		respondError(w, r, "create_expenditure", err)
		return
	}
	var req createExpenditureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_expenditure", err)
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		respondError(w, r, "create_expenditure", err)
		return
	}
	date := core.DateOf(s.now())
	if req.Date != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			respondError(w, r, "create_expenditure", err)
			return
		}
	}

	res, err := s.services.Expenditures.Create(r.Context(), userID, categoryID, core.Expenditure{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
	})
	if err != nil {
		respondError(w, r, "create_expenditure", err)
		return
	}
	s.metrics.recordExpenditure(res.Outcome)
	writeJSON(w, r, http.StatusCreated, toCreateExpenditure(res))
}

func (s *Server) handleDeleteExpenditure(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "delete_expenditure", err)
		return
	}
	expenditureID, err := pathID(r, "expenditureID")
	if err != nil {
		respondError(w, r, "delete_expenditure", err)
		return
	}
	if err := s.services.Expenditures.Delete(r.Context(), userID, expenditureID); err != nil {
		respondError(w, r, "delete_expenditure", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
