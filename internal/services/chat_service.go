package services

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/chat"
	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/notify"
)

// NotificationService отдает счетчики уведомлений и запоминает изменения
// бесед, пришедшие через сокет уведомлений.
type NotificationService struct {
	Hub    *notify.Hub
	logger *logrus.Logger

	mu      sync.RWMutex
	updates map[string]map[string]models.Conversation
}

// NewNotificationService создает новый экземпляр NotificationService.
// Hub задается отдельно, так как хаб вызывает Record.
func NewNotificationService(logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		logger:  logger,
		updates: make(map[string]map[string]models.Conversation),
	}
}

// Record сохраняет изменение беседы пользователя.
func (s *NotificationService) Record(update models.ConversationUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byConv, ok := s.updates[update.UserID]
	if !ok {
		byConv = make(map[string]models.Conversation)
		s.updates[update.UserID] = byConv
	}
	byConv[update.Conversation.ID] = update.Conversation
	s.logger.WithFields(logrus.Fields{"user": update.UserID, "conversation": update.Conversation.ID}).
		Debug("Event ID: CONVERSATION_UPDATED, Description: conversation update received")
}

// ConversationUpdates возвращает последние известные изменения бесед пользователя.
func (s *NotificationService) ConversationUpdates(userID string) map[string]models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Conversation, len(s.updates[userID]))
	for id, c := range s.updates[userID] {
		out[id] = c
	}
	return out
}

// Counters подключает сокет уведомлений пользователя, если нужно, и
// возвращает последние счетчики.
func (s *NotificationService) Counters(caller models.Caller) models.Counters {
	s.Hub.Subscribe(caller)
	return s.Hub.Counters(caller.UserID)
}

// ChatService - беседы и сообщения пользователя.
type ChatService struct {
	Market        Marketplace
	Hub           *chat.Hub
	Notifications *NotificationService
}

// NewChatService создает новый экземпляр ChatService.
func NewChatService(market Marketplace, hub *chat.Hub, notifications *NotificationService) *ChatService {
	return &ChatService{Market: market, Hub: hub, Notifications: notifications}
}

// ListConversations возвращает беседы пользователя. Изменения из сокета
// уведомлений, более свежие чем ответ бэкенда, накладываются сверху.
func (s *ChatService) ListConversations(ctx context.Context, caller models.Caller) ([]models.Conversation, error) {
	conversations, err := s.Market.ListConversations(ctx, caller)
	if err != nil {
		return nil, err
	}

	updates := s.Notifications.ConversationUpdates(caller.UserID)
	for i, c := range conversations {
		if u, ok := updates[c.ID]; ok && u.UpdatedAt.After(c.UpdatedAt) {
			conversations[i] = u
		}
		delete(updates, c.ID)
	}
	for _, u := range updates {
		conversations = append(conversations, u)
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

// Messages возвращает сообщения беседы. Первая страница берется из живой
// ленты (с неподтвержденными сообщениями), остальные - из истории бэкенда.
func (s *ChatService) Messages(ctx context.Context, caller models.Caller, conversationID string, limit, offset int) ([]models.Message, error) {
	if offset > 0 {
		return s.Market.ListMessages(ctx, caller, conversationID, limit, offset)
	}
	client, err := s.Hub.Open(ctx, caller, conversationID)
	if err != nil {
		return nil, err
	}
	return client.Messages(), nil
}

// Send отправляет сообщение в беседу.
func (s *ChatService) Send(ctx context.Context, caller models.Caller, conversationID string, req models.SendMessageRequest) (models.Message, error) {
	client, err := s.Hub.Open(ctx, caller, conversationID)
	if err != nil {
		return models.Message{}, err
	}
	return client.Send(req)
}

// MarkSeen отмечает сообщения прочитанными.
func (s *ChatService) MarkSeen(ctx context.Context, caller models.Caller, conversationID string, ids []string) error {
	client, err := s.Hub.Open(ctx, caller, conversationID)
	if err != nil {
		return err
	}
	if err := client.MarkSeen(ids); err != nil {
		return models.NewErrorResponse(http.StatusServiceUnavailable, "chat connection is not ready, try again")
	}
	return nil
}
