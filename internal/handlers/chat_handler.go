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

// ChatService - операции чата, которые нужны обработчикам.
type ChatService interface {
	ListConversations(ctx context.Context, caller models.Caller) ([]models.Conversation, error)
	Messages(ctx context.Context, caller models.Caller, conversationID string, limit, offset int) ([]models.Message, error)
	Send(ctx context.Context, caller models.Caller, conversationID string, req models.SendMessageRequest) (models.Message, error)
	MarkSeen(ctx context.Context, caller models.Caller, conversationID string, ids []string) error
}

// CountersSource отдает счетчики уведомлений.
type CountersSource interface {
	Counters(caller models.Caller) models.Counters
}

// ChatHandler - структура для обработки HTTP-запросов чата и уведомлений.
type ChatHandler struct {
	Service       ChatService
	Notifications CountersSource
	Logger        *logrus.Logger
	Timeout       time.Duration
}

// NewChatHandler создает новый экземпляр ChatHandler.
func NewChatHandler(service ChatService, notifications CountersSource, logger *logrus.Logger, timeout time.Duration) *ChatHandler {
	return &ChatHandler{
		Service:       service,
		Notifications: notifications,
		Logger:        logger,
		Timeout:       timeout,
	}
}

// ListConversations обрабатывает запросы для получения списка бесед.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to list conversations")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	conversations, err := h.Service.ListConversations(ctx, caller)
	if err != nil {
		respondError(w, h.Logger, err, "failed to list conversations")
		return
	}
	utils.SendJSON(w, http.StatusOK, conversations)
}

// ListMessages обрабатывает запросы для получения сообщений беседы.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to list messages")
		return
	}

	limit, offset, err := utils.ParseLimitOffset(r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		utils.SendErrorResponse(w, models.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	messages, err := h.Service.Messages(ctx, caller, mux.Vars(r)["conversationId"], limit, offset)
	if err != nil {
		respondError(w, h.Logger, err, "failed to list messages")
		return
	}
	utils.SendJSON(w, http.StatusOK, messages)
}

// SendMessage обрабатывает запросы отправки сообщения.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to send message")
		return
	}

	var req models.SendMessageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.Logger, err, "invalid message")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	msg, err := h.Service.Send(ctx, caller, mux.Vars(r)["conversationId"], req)
	if err != nil && !msg.Failed {
		respondError(w, h.Logger, err, "failed to send message")
		return
	}
	if err != nil {
		// Сообщение остается в ленте с пометкой failed, UI предложит повторить отправку.
		h.Logger.Warnf("Event ID: CHAT_SEND_FAILED, Description: %v", err)
	}
	utils.SendJSON(w, http.StatusAccepted, msg)
}

// MarkSeen обрабатывает запросы отметки сообщений прочитанными.
func (h *ChatHandler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to mark messages seen")
		return
	}

	var req models.SeenRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, h.Logger, err, "invalid seen request")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.MarkSeen(ctx, caller, mux.Vars(r)["conversationId"], req.MessageIDs); err != nil {
		respondError(w, h.Logger, err, "failed to mark messages seen")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCounters обрабатывает запросы счетчиков уведомлений.
func (h *ChatHandler) GetCounters(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromRequest(r)
	if err != nil {
		respondError(w, h.Logger, err, "failed to get counters")
		return
	}
	utils.SendJSON(w, http.StatusOK, h.Notifications.Counters(caller))
}
