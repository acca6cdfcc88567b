// Package notify держит сокет уведомлений пользователя и счетчики,
// которые он присылает.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/socket"
)

// Типы кадров сокета уведомлений.
const (
	NotificationsCountFrame     = "notifications_count"
	UnreadMessagesFrame         = "unread_messages"
	UserConversationUpdateFrame = "user_conversation_update"
)

type frame struct {
	Type         string               `json:"type"`
	Count        *int                 `json:"count"`
	Conversation *models.Conversation `json:"conversation"`
}

// Transport - соединение сокета уведомлений.
type Transport interface {
	Run(ctx context.Context) error
}

// Dial создает транспорт для адреса сокета.
type Dial func(url string, handle socket.Handler, logger *logrus.Entry) Transport

// SocketDial - транспорт на основе socket.Conn.
func SocketDial(backoff socket.Backoff) Dial {
	return func(url string, handle socket.Handler, logger *logrus.Entry) Transport {
		return socket.New(url, nil, backoff, handle, logger)
	}
}

// SocketURL собирает адрес сокета уведомлений.
func SocketURL(base, token string) string {
	return fmt.Sprintf("%s/ws/notifications/?token=%s", strings.TrimRight(base, "/"), url.QueryEscape(token))
}

type subscription struct {
	mu       sync.RWMutex
	counters models.Counters
	running  bool
}

// Hub держит по одному сокету уведомлений на пользователя.
type Hub struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wsURL    string
	dial     Dial
	logger   *logrus.Logger
	onUpdate func(models.ConversationUpdate)
	now      func() time.Time

	mu   sync.Mutex
	subs map[string]*subscription
	wg   sync.WaitGroup
}

// NewHub создает хаб. onUpdate вызывается на каждый user_conversation_update
// и может быть nil.
func NewHub(parent context.Context, wsURL string, dial Dial, logger *logrus.Logger, onUpdate func(models.ConversationUpdate)) *Hub {
	ctx, cancel := context.WithCancel(parent)
	return &Hub{
		ctx:      ctx,
		cancel:   cancel,
		wsURL:    strings.TrimRight(wsURL, "/"),
		dial:     dial,
		logger:   logger,
		onUpdate: onUpdate,
		now:      time.Now,
		subs:     make(map[string]*subscription),
	}
}

// Subscribe подключает сокет пользователя, если он еще не подключен.
func (h *Hub) Subscribe(caller models.Caller) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[caller.UserID]
	if ok && sub.running {
		return
	}
	if h.ctx.Err() != nil {
		return
	}
	if !ok {
		sub = &subscription{}
		h.subs[caller.UserID] = sub
	}
	sub.running = true

	logger := h.logger.WithField("user", caller.UserID)
	transport := h.dial(SocketURL(h.wsURL, caller.Token), func(data []byte) {
		h.handleFrame(caller.UserID, sub, data, logger)
	}, logger)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		err := transport.Run(h.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Event ID: NOTIFY_SOCKET_STOPPED, Description: %v", err)
		}
		h.mu.Lock()
		sub.running = false
		h.mu.Unlock()
	}()
}

// Counters возвращает последние известные счетчики пользователя.
func (h *Hub) Counters(userID string) models.Counters {
	h.mu.Lock()
	sub, ok := h.subs[userID]
	h.mu.Unlock()
	if !ok {
		return models.Counters{}
	}
	sub.mu.RLock()
	defer sub.mu.RUnlock()
	return sub.counters
}

func (h *Hub) handleFrame(userID string, sub *subscription, data []byte, logger *logrus.Entry) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		logger.Warnf("Event ID: NOTIFY_FRAME_INVALID, Description: %v", err)
		return
	}

	switch f.Type {
	case NotificationsCountFrame, UnreadMessagesFrame:
		if f.Count == nil {
			logger.Warnf("Event ID: NOTIFY_FRAME_INVALID, Description: %s frame without count", f.Type)
			return
		}
		sub.mu.Lock()
		if f.Type == NotificationsCountFrame {
			sub.counters.Notifications = *f.Count
		} else {
			sub.counters.UnreadMessages = *f.Count
		}
		sub.counters.UpdatedAt = h.now().UTC()
		sub.mu.Unlock()
	case UserConversationUpdateFrame:
		if f.Conversation == nil || h.onUpdate == nil {
			return
		}
		h.onUpdate(models.ConversationUpdate{UserID: userID, Conversation: *f.Conversation})
	default:
		logger.Debugf("Event ID: NOTIFY_FRAME_IGNORED, Description: unknown frame type %q", f.Type)
	}
}

// Close закрывает все сокеты и ждет завершения.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
}
