package chat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/socket"
)

// HistoryPageSize - сколько сообщений подгружается при открытии беседы.
const HistoryPageSize = 50

// Transport - соединение, по которому ходят кадры чата.
type Transport interface {
	Run(ctx context.Context) error
	WriteJSON(v interface{}) error
}

// History загружает историю сообщений беседы.
type History interface {
	ListMessages(ctx context.Context, caller models.Caller, conversationID string, limit, offset int) ([]models.Message, error)
}

// Client - открытая беседа: сокет и лента сообщений.
type Client struct {
	conversationID string
	caller         models.Caller
	transport      Transport
	timeline       *Timeline
	logger         *logrus.Entry
	now            func() time.Time
}

func (c *Client) handleFrame(data []byte) {
	ev, err := Decode(data)
	if err != nil {
		c.logger.Warnf("Event ID: CHAT_FRAME_INVALID, Description: %v", err)
		return
	}
	c.timeline.Apply(ev)
}

// Messages возвращает текущую ленту беседы.
func (c *Client) Messages() []models.Message { return c.timeline.Messages() }

// Send показывает сообщение в ленте сразу и отправляет его в сокет.
// Сервер возвращает сообщение с тем же temp_id, и оно заменяет черновик.
func (c *Client) Send(req models.SendMessageRequest) (models.Message, error) {
	msg := models.Message{
		TempID:         uuid.New().String(),
		ConversationID: c.conversationID,
		SenderID:       c.caller.UserID,
		Content:        req.Message,
		ReplyToID:      req.ReplyToID,
		CreatedAt:      c.now().UTC(),
	}
	c.timeline.AddPending(msg)
	msg.Pending = true

	files := req.FileIDs
	if files == nil {
		files = []string{}
	}
	err := c.transport.WriteJSON(OutgoingMessage{
		Message:   req.Message,
		Files:     files,
		TempID:    msg.TempID,
		ReplyToID: req.ReplyToID,
	})
	if err != nil {
		c.timeline.MarkFailed(msg.TempID)
		msg.Pending = false
		msg.Failed = true
		return msg, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// MarkSeen отправляет отметку прочтения и сразу применяет ее к ленте.
func (c *Client) MarkSeen(ids []string) error {
	if err := c.transport.WriteJSON(NewSeenFrame(ids)); err != nil {
		return fmt.Errorf("failed to mark messages seen: %w", err)
	}
	c.timeline.Apply(Seen{MessageIDs: ids})
	return nil
}

// Dial создает транспорт для адреса сокета.
type Dial func(url string, handle socket.Handler, logger *logrus.Entry) Transport

// SocketDial - транспорт на основе socket.Conn.
func SocketDial(backoff socket.Backoff) Dial {
	return func(url string, handle socket.Handler, logger *logrus.Entry) Transport {
		return socket.New(url, nil, backoff, handle, logger)
	}
}

// Hub держит по одному клиенту на пару пользователь/беседа.
type Hub struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wsURL   string
	history History
	dial    Dial
	logger  *logrus.Logger

	mu      sync.Mutex
	clients map[string]*Client
	wg      sync.WaitGroup
}

// NewHub создает хаб. Сокеты живут до Close или отмены parent.
func NewHub(parent context.Context, wsURL string, history History, dial Dial, logger *logrus.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	return &Hub{
		ctx:     ctx,
		cancel:  cancel,
		wsURL:   strings.TrimRight(wsURL, "/"),
		history: history,
		dial:    dial,
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

func clientKey(userID, conversationID string) string {
	return userID + ":" + conversationID
}

// SocketURL собирает адрес сокета беседы.
func SocketURL(base, conversationID, token string) string {
	return fmt.Sprintf("%s/ws/chat/%s/?token=%s", strings.TrimRight(base, "/"), url.PathEscape(conversationID), url.QueryEscape(token))
}

// Open возвращает клиент беседы, при первом обращении загружает историю и
// подключает сокет.
func (h *Hub) Open(ctx context.Context, caller models.Caller, conversationID string) (*Client, error) {
	key := clientKey(caller.UserID, conversationID)

	h.mu.Lock()
	if c, ok := h.clients[key]; ok {
		h.mu.Unlock()
		return c, nil
	}
	h.mu.Unlock()

	history, err := h.history.ListMessages(ctx, caller, conversationID, HistoryPageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[key]; ok {
		c.timeline.Load(history)
		return c, nil
	}
	if h.ctx.Err() != nil {
		return nil, h.ctx.Err()
	}

	logger := h.logger.WithFields(logrus.Fields{"conversation": conversationID, "user": caller.UserID})
	c := &Client{
		conversationID: conversationID,
		caller:         caller,
		timeline:       NewTimeline(),
		logger:         logger,
		now:            time.Now,
	}
	c.timeline.Load(history)
	c.transport = h.dial(SocketURL(h.wsURL, conversationID, caller.Token), c.handleFrame, logger)
	h.clients[key] = c

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		err := c.transport.Run(h.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("Event ID: CHAT_SOCKET_STOPPED, Description: %v", err)
		}
		h.mu.Lock()
		if h.clients[key] == c {
			delete(h.clients, key)
		}
		h.mu.Unlock()
	}()

	return c, nil
}

// Close закрывает все сокеты и ждет завершения.
func (h *Hub) Close() {
	h.cancel()
	h.wg.Wait()
}
