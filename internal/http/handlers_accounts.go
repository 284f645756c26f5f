package http

import (
	"net/http"
)

func (s *Server) handleCreateHouse(w http.ResponseWriter, r *http.Request) {
	var req createHouseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_house", err)
		return
	}
	house, err := s.services.Accounts.CreateHouse(r.Context(), sanitizeInput(req.Name))
	if err != nil {
		respondError(w, r, "create_house", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toHouse(house))
}

func (s *Server) handleListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.services.Reports.Standings(r.Context())
	if err != nil {
		respondError(w, r, "list_houses", err)
		return
	}
	out := make([]houseResponse, 0, len(houses))
	for _, h := range houses {
		out = append(out, toHouse(h))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, "create_user", err)
		return
	}
	user, err := s.services.Accounts.CreateUser(r.Context(), sanitizeInput(req.Username), req.HouseID)
	if err != nil {
		respondError(w, r, "create_user", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toUser(user))
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "get_user", err)
		return
	}
	user, err := s.services.Accounts.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, r, "get_user", err)
		return
	}
	writeJSON(w, r, http.StatusOK, toUser(user))
}

// handleRecordLogin is called by the authentication layer after every
// successful login.
func (s *Server) handleRecordLogin(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "record_login", err)
		return
	}
	res, err := s.services.Logins.RecordLogin(r.Context(), userID)
	if err != nil {
		respondError(w, r, "record_login", err)
		return
	}
	s.metrics.recordDelta(res.Outcome.Delta)
	writeJSON(w, r, http.StatusOK, loginResponse{
		Awarded: res.Outcome.Delta,
		Points:  res.Points,
		Reason:  res.Outcome.Reason,
	})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "list_notifications", err)
		return
	}
	unseenOnly := r.URL.Query().Get("unseen") == "true"
	notes, err := s.services.Accounts.Notifications(r.Context(), userID, unseenOnly)
	if err != nil {
		respondError(w, r, "list_notifications", err)
		return
	}
	out := make([]notificationResponse, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNotification(n))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleMarkNotificationsSeen(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		respondError(w, r, "mark_notifications_seen", err)
		return
	}
	n, err := s.services.Accounts.MarkNotificationsSeen(r.Context(), userID)
	if err != nil {
		respondError(w, r, "mark_notifications_seen", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int64{"marked": n})
}
