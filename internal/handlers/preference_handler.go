package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/utils"
)

// PreferenceService - операции настроек пользователя, которые нужны обработчикам.
type PreferenceService interface {
	ListDismissals(ctx context.Context, caller models.Caller) ([]models.Dismissal, error)
	Dismiss(ctx context.Context, caller models.Caller, key string) (*models.Dismissal, error)
	Restore(ctx context.Context, caller models.Caller, key string) error
	ReferralSummary(ctx context.Context, caller models.Caller) (*models.ReferralSummary, error)
}

// PreferenceHandler - структура для обработки HTTP-запросов настроек и рефералов.
type PreferenceHandler struct {
	Service PreferenceService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewPreferenceHandler создает новый экземпляр PreferenceHandler.
func NewPreferenceHandler(service PreferenceService, logger *logrus.Logger, timeout time.Duration) *PreferenceHandler {
	return &PreferenceHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// ListDismissals обрабатывает запросы списка скрытых баннеров.
func (h *PreferenceHandler) ListDismissals(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to list dismissals")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	dismissals, err := h.Service.ListDismissals(ctx, caller)
	if err != nil {
		respondError(w, h.Logger, err, "failed to list dismissals")
		return
	}
	utils.SendJSON(w, http.StatusOK, dismissals)
}

// Dismiss обрабатывает запросы скрытия баннера.
func (h *PreferenceHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to dismiss")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	dismissal, err := h.Service.Dismiss(ctx, caller, mux.Vars(r)["key"])
	if err != nil {
		respondError(w, h.Logger, err, "failed to dismiss")
		return
	}
	utils.SendJSON(w, http.StatusOK, dismissal)
}

// Restore обрабатывает запросы возврата скрытого баннера.
func (h *PreferenceHandler) Restore(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to restore")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.Restore(ctx, caller, mux.Vars(r)["key"]); err != nil {
		respondError(w, h.Logger, err, "failed to restore")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetReferrals обрабатывает запросы сводки реферальной программы.
func (h *PreferenceHandler) GetReferrals(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to get referral summary")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary, err := h.Service.ReferralSummary(ctx, caller)
	if err != nil {
		respondError(w, h.Logger, err, "failed to get referral summary")
		return
	}
	utils.SendJSON(w, http.StatusOK, summary)
}
