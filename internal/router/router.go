package router

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/handlers"
)

// Handlers - обработчики, которые регистрирует InitRoutes.
type Handlers struct {
	Assignment *handlers.AssignmentHandler
	Chat       *handlers.ChatHandler
	Preference *handlers.PreferenceHandler
}

func InitRoutes(h Handlers, logger *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(logger))

	r.HandleFunc("/api/ping", handlers.PingHandler).Methods(http.MethodGet)

	a := r.PathPrefix("/api/projects/{projectId}").Subrouter()
	a.HandleFunc("/assignment", h.Assignment.GetAssignment).Methods(http.MethodGet)
	a.HandleFunc("/assignment/tier", h.Assignment.ChangeTier).Methods(http.MethodPut)
	a.HandleFunc("/assignment/next", h.Assignment.Next).Methods(http.MethodPost)
	a.HandleFunc("/assignment/previous", h.Assignment.Previous).Methods(http.MethodPost)
	a.HandleFunc("/assignment/skip", h.Assignment.Skip).Methods(http.MethodPost)
	a.HandleFunc("/assignment/refresh", h.Assignment.Refresh).Methods(http.MethodPost)
	a.HandleFunc("/assignment/shortlist/{bidId}", h.Assignment.ToggleShortlist).Methods(http.MethodPost)
	a.HandleFunc("/assignment/interviews", h.Assignment.RequestInterviews).Methods(http.MethodPost)
	a.HandleFunc("/assignment/select/{bidId}", h.Assignment.Select).Methods(http.MethodPost)
	a.HandleFunc("/bids/{bidId}/actions", h.Assignment.DispatchAction).Methods(http.MethodPost)

	r.HandleFunc("/api/chat/conversations", h.Chat.ListConversations).Methods(http.MethodGet)
	r.HandleFunc("/api/chat/conversations/{conversationId}/messages", h.Chat.ListMessages).Methods(http.MethodGet)
	r.HandleFunc("/api/chat/conversations/{conversationId}/messages", h.Chat.SendMessage).Methods(http.MethodPost)
	r.HandleFunc("/api/chat/conversations/{conversationId}/seen", h.Chat.MarkSeen).Methods(http.MethodPost)
	r.HandleFunc("/api/notifications/counters", h.Chat.GetCounters).Methods(http.MethodGet)

	r.HandleFunc("/api/preferences/dismissals", h.Preference.ListDismissals).Methods(http.MethodGet)
	r.HandleFunc("/api/preferences/dismissals/{key}", h.Preference.Dismiss).Methods(http.MethodPut)
	r.HandleFunc("/api/preferences/dismissals/{key}", h.Preference.Restore).Methods(http.MethodDelete)
	r.HandleFunc("/api/referrals", h.Preference.GetReferrals).Methods(http.MethodGet)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+handlers.UserIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Debug("Event ID: HTTP_REQUEST, Description: request served")
		})
	}
}
