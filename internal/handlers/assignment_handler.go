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

// AssignmentService - операции мастера назначения, которые нужны обработчикам.
type AssignmentService interface {
	Open(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error)
	Refresh(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error)
	ChangeTier(ctx context.Context, caller models.Caller, projectID string, tier models.Tier) (*models.AssignmentView, error)
	Next(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error)
	Previous(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error)
	Skip(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error)
	ToggleShortlist(ctx context.Context, caller models.Caller, projectID, bidID string) (*models.AssignmentView, error)
	RequestInterviews(ctx context.Context, caller models.Caller, projectID string, req models.InterviewRequest) (int, *models.AssignmentView, error)
	Select(ctx context.Context, caller models.Caller, projectID, bidID string, req models.InvitationRequest) (*models.AssignmentView, error)
	DispatchAction(ctx context.Context, caller models.Caller, projectID, bidID string, req models.BidActionRequest) (*models.AssignmentView, error)
}

// AssignmentHandler - структура для обработки HTTP-запросов мастера назначения.
type AssignmentHandler struct {
	Service AssignmentService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewAssignmentHandler создает новый экземпляр AssignmentHandler.
func NewAssignmentHandler(service AssignmentService, logger *logrus.Logger, timeout time.Duration) *AssignmentHandler {
	return &AssignmentHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

type viewFunc func(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error)

// serveView - общий путь для запросов, которые возвращают состояние мастера.
func (h *AssignmentHandler) serveView(w http.ResponseWriter, r *http.Request, fallback string, fn viewFunc) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, fallback)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	view, err := fn(ctx, caller, mux.Vars(r)["projectId"])
	if err != nil {
		respondError(w, h.Logger, err, fallback)
		return
	}
	utils.SendJSON(w, http.StatusOK, view)
}

// GetAssignment обрабатывает запросы для получения состояния мастера.
func (h *AssignmentHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, "failed to load assignment", h.Service.Open)
}

// Refresh обрабатывает запросы для повторной загрузки предложений.
func (h *AssignmentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, "failed to refresh assignment", h.Service.Refresh)
}

// Next обрабатывает запросы перехода на следующий этап.
func (h *AssignmentHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, "failed to move to the next step", h.Service.Next)
}

// Previous обрабатывает запросы возврата на предыдущий этап.
func (h *AssignmentHandler) Previous(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, "failed to move to the previous step", h.Service.Previous)
}

// Skip обрабатывает запросы пропуска необязательного этапа.
func (h *AssignmentHandler) Skip(w http.ResponseWriter, r *http.Request) {
	h.serveView(w, r, "failed to skip step", h.Service.Skip)
}

// ChangeTier обрабатывает запросы ручного выбора типа назначения.
func (h *AssignmentHandler) ChangeTier(w http.ResponseWriter, r *http.Request) {
	var req models.TierChangeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.Logger, err, "invalid tier change request")
		return
	}
	tier, _ := models.ParseTier(req.Tier)

	h.serveView(w, r, "failed to change tier", func(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
		return h.Service.ChangeTier(ctx, caller, projectID, tier)
	})
}

// ToggleShortlist обрабатывает запросы добавления в шорт-лист и удаления из него.
func (h *AssignmentHandler) ToggleShortlist(w http.ResponseWriter, r *http.Request) {
	bidID := mux.Vars(r)["bidId"]
	h.serveView(w, r, "failed to update shortlist", func(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
		return h.Service.ToggleShortlist(ctx, caller, projectID, bidID)
	})
}

// Select обрабатывает запросы выбора исполнителя.
func (h *AssignmentHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req models.InvitationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.Logger, err, "invalid invitation request")
		return
	}

	bidID := mux.Vars(r)["bidId"]
	h.serveView(w, r, "failed to select freelancer", func(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
		return h.Service.Select(ctx, caller, projectID, bidID, req)
	})
}

// DispatchAction обрабатывает запросы действий над предложением.
func (h *AssignmentHandler) DispatchAction(w http.ResponseWriter, r *http.Request) {
	var req models.BidActionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.Logger, err, "invalid bid action request")
		return
	}

	bidID := mux.Vars(r)["bidId"]
	h.serveView(w, r, "failed to update bid", func(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
		return h.Service.DispatchAction(ctx, caller, projectID, bidID, req)
	})
}

type interviewResponse struct {
	CreatedInvitations int                    `json:"created_invitations"`
	Assignment         *models.AssignmentView `json:"assignment"`
}

// RequestInterviews обрабатывает запросы на интервью.
func (h *AssignmentHandler) RequestInterviews(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to request interviews")
		return
	}

	var req models.InterviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.Logger, err, "invalid interview request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	created, view, err := h.Service.RequestInterviews(ctx, caller, mux.Vars(r)["projectId"], req)
	if err != nil {
		respondError(w, h.Logger, err, "failed to request interviews")
		return
	}
	utils.SendJSON(w, http.StatusOK, interviewResponse{CreatedInvitations: created, Assignment: view})
}
