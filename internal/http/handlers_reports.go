package http

import (
	"net/http"

	"spendpoints/internal/budget"
	"spendpoints/internal/core"
	"spendpoints/internal/services"
)

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "category_progress", err)
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		respondError(w, r, "category_progress", err)
		return
	}
	period, err := queryPeriod(r, "period")
	if err != nil {
		respondError(w, r, "category_progress", err)
		return
	}
	p, err := s.services.Reports.Progress(r.Context(), userID, categoryID, period)
	if err != nil {
		respondError(w, r, "category_progress", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toProgress(p))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "category_history", err)
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		respondError(w, r, "category_history", err)
		return
	}
	period, err := queryPeriod(r, "period")
	if err != nil {
		respondError(w, r, "category_history", err)
		return
	}
	count, err := queryInt(r, "count", services.DefaultHistoryWindows)
	if err != nil {
		respondError(w, r, "category_history", err)
		return
	}

	history, err := s.services.Reports.History(r.Context(), userID, categoryID, period, count)
	if err != nil {
		respondError(w, r, "category_history", err)
		return
	}
	out := make([]historyPointResponse, 0, len(history))
	for _, p := range history {
		out = append(out, toHistoryPoint(p))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "overview", err)
		return
	}
	o, err := s.services.Reports.Overview(r.Context(), userID)
	if err != nil {
		respondError(w, r, "overview", err)
		return
	}

	out := overviewResponse{
		User:       toUser(o.User),
		Categories: make([]progressResponse, 0, len(o.Categories)),
	}
	if o.House != nil {
		h := toHouse(*o.House)
		out.House = &h
	}
	for _, p := range o.Categories {
		out.Categories = append(out.Categories, toProgress(p))
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleConvert restates an amount from one budget period in another.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := core.ParseAmount(q.Get("amount"))
	if err != nil {
		respondError(w, r, "convert", err)
		return
	}
	from, err := core.ParsePeriod(q.Get("from"))
	if err != nil {
		respondError(w, r, "convert", err)
		return
	}
	to, err := core.ParsePeriod(q.Get("to"))
	if err != nil {
		respondError(w, r, "convert", err)
		return
	}

	result := budget.Convert(core.SpendingLimit{Amount: amount, Period: from}, to)
	writeJSON(w, r, http.StatusOK, convertResponse{
		Amount: core.FormatAmount(amount),
		From:   from.String(),
		To:     to.String(),
		Result: result.StringFixed(4),
	})
}
