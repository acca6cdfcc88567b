// Package socket - WebSocket-соединение с бэкендом маркетплейса,
// которое переподключается с экспоненциальной задержкой.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// MaxPending - сколько кадров держится в очереди, пока соединение не открыто.
const MaxPending = 64

var (
	ErrNotConnected = errors.New("socket is not connected")
	ErrGaveUp       = errors.New("socket reconnect attempts exhausted")
)

// Backoff - политика переподключения.
// Соединение, прожившее меньше StableAfter, считается неудачной попыткой.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxRetries  int
	StableAfter time.Duration
}

// DefaultBackoff: 1s, 2s, 4s ... до 30s, не более 10 неудачных попыток подряд.
func DefaultBackoff() Backoff {
	return Backoff{Initial: time.Second, Max: 30 * time.Second, MaxRetries: 10, StableAfter: 10 * time.Second}
}

// Delay возвращает задержку перед попыткой attempt (начиная с 1).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	if d > b.Max {
		return b.Max
	}
	return d
}

// Dialer открывает WebSocket-соединение. *websocket.Dialer подходит.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Handler получает каждый прочитанный кадр.
type Handler func(data []byte)

// Conn - соединение с автоматическим переподключением.
type Conn struct {
	url     string
	dialer  Dialer
	backoff Backoff
	handle  Handler
	logger  *logrus.Entry

	mu      sync.Mutex
	ws      *websocket.Conn
	pending [][]byte
	stopped bool

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New создает соединение. Подключение начинается в Run.
func New(url string, dialer Dialer, backoff Backoff, handle Handler, logger *logrus.Entry) *Conn {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Conn{
		url:     url,
		dialer:  dialer,
		backoff: backoff,
		handle:  handle,
		logger:  logger,
		sleep:   sleepContext,
		now:     time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run держит соединение открытым до отмены ctx. Возвращает ErrGaveUp, если
// подряд MaxRetries раз не удалось подключиться или соединение сразу рвалось,
// иначе ошибку контекста.
func (c *Conn) Run(ctx context.Context) error {
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
	defer c.stop()

	failures := 0
	for {
		ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		} else {
			connectedAt := c.now()
			c.setConn(ws)
			c.logger.Info("Event ID: SOCKET_CONNECTED, Description: socket connected")
			err = c.readLoop(ctx, ws)
			c.setConn(nil)
			_ = ws.Close()

			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.now().Sub(connectedAt) >= c.backoff.StableAfter {
				failures = 0
			}
			c.logger.Warnf("Event ID: SOCKET_DISCONNECTED, Description: %v", err)
		}

		failures++
		if c.backoff.MaxRetries > 0 && failures > c.backoff.MaxRetries {
			c.logger.Errorf("Event ID: SOCKET_GAVE_UP, Description: giving up after %d attempts: %v", failures-1, err)
			return ErrGaveUp
		}
		delay := c.backoff.Delay(failures)
		c.logger.Warnf("Event ID: SOCKET_RETRY, Description: attempt %d failed, retrying in %s: %v", failures, delay, err)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (c *Conn) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) > 0 {
		c.logger.Warnf("Event ID: SOCKET_FRAMES_DROPPED, Description: %d queued frames dropped", len(c.pending))
	}
	c.pending = nil
	c.stopped = true
}

func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ws.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}
		c.handle(data)
	}
}

// setConn запоминает соединение и отправляет кадры, накопленные до подключения.
func (c *Conn) setConn(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws = ws
	if ws == nil {
		return
	}
	for len(c.pending) > 0 {
		if err := c.write(c.pending[0]); err != nil {
			c.logger.Warnf("Event ID: SOCKET_FLUSH_FAILED, Description: %v", err)
			return
		}
		c.pending = c.pending[1:]
	}
}

// Connected сообщает, открыто ли соединение сейчас.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// WriteJSON отправляет кадр. Пока соединение не открыто, кадр ждет в очереди
// и уходит сразу после подключения. ErrNotConnected возвращается, если Run уже
// завершился или очередь заполнена.
func (c *Conn) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrNotConnected
	}
	if c.ws == nil {
		if len(c.pending) >= MaxPending {
			return ErrNotConnected
		}
		c.pending = append(c.pending, data)
		return nil
	}
	return c.write(data)
}

func (c *Conn) write(data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
