package chat

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/socket"
)

type fakeTransport struct {
	mu      sync.Mutex
	url     string
	handle  socket.Handler
	written []interface{}
	failing bool
}

func (f *fakeTransport) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeTransport) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return socket.ErrNotConnected
	}
	f.written = append(f.written, v)
	return nil
}

type fakeHistory struct {
	calls int
	msgs  []models.Message
}

func (h *fakeHistory) ListMessages(ctx context.Context, caller models.Caller, conversationID string, limit, offset int) ([]models.Message, error) {
	h.calls++
	return h.msgs, nil
}

func newTestHub(t *testing.T, history History) (*Hub, *[]*fakeTransport) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var transports []*fakeTransport
	dial := func(url string, handle socket.Handler, _ *logrus.Entry) Transport {
		tr := &fakeTransport{url: url, handle: handle}
		transports = append(transports, tr)
		return tr
	}
	hub := NewHub(context.Background(), "wss://api.example.com/", history, dial, logger)
	t.Cleanup(hub.Close)
	return hub, &transports
}

func TestHubOpenReusesClient(t *testing.T) {
	history := &fakeHistory{msgs: []models.Message{{ID: "m1", Content: "hi", CreatedAt: t0}}}
	hub, transports := newTestHub(t, history)
	caller := models.Caller{UserID: "u1", Token: "t k"}

	c1, err := hub.Open(context.Background(), caller, "c1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	c2, err := hub.Open(context.Background(), caller, "c1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if c1 != c2 || history.calls != 1 || len(*transports) != 1 {
		t.Fatalf("expected one client, history calls %d, transports %d", history.calls, len(*transports))
	}
	if got := (*transports)[0].url; got != "wss://api.example.com/ws/chat/c1/?token=t+k" {
		t.Errorf("socket url = %s", got)
	}
	if len(c1.Messages()) != 1 {
		t.Errorf("history not loaded: %+v", c1.Messages())
	}
}

func TestClientSendAndEcho(t *testing.T) {
	hub, transports := newTestHub(t, &fakeHistory{})
	c, _ := hub.Open(context.Background(), models.Caller{UserID: "u1"}, "c1")
	tr := (*transports)[0]

	msg, err := c.Send(models.SendMessageRequest{Message: "hello", ReplyToID: "m0"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	out, ok := tr.written[0].(OutgoingMessage)
	if !ok || out.TempID != msg.TempID || out.Message != "hello" || out.ReplyToID != "m0" || out.Files == nil {
		t.Fatalf("unexpected outgoing frame %+v", tr.written[0])
	}

	tr.handle([]byte(`{"id":"m9","temp_id":"` + msg.TempID + `","message":"hello","sender_id":"u1"}`))
	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].ID != "m9" || msgs[0].Pending {
		t.Errorf("echo not reconciled: %+v", msgs)
	}
}

func TestClientSendFailureMarksMessage(t *testing.T) {
	hub, transports := newTestHub(t, &fakeHistory{})
	c, _ := hub.Open(context.Background(), models.Caller{UserID: "u1"}, "c1")
	(*transports)[0].failing = true

	msg, err := c.Send(models.SendMessageRequest{Message: "hello"})
	if !errors.Is(err, socket.ErrNotConnected) {
		t.Fatalf("Send() error = %v", err)
	}
	if !msg.Failed || !c.Messages()[0].Failed {
		t.Error("message should be marked failed")
	}
}

func TestClientMarkSeen(t *testing.T) {
	hub, transports := newTestHub(t, &fakeHistory{msgs: []models.Message{{ID: "m1", SenderID: "peer", CreatedAt: t0}}})
	c, _ := hub.Open(context.Background(), models.Caller{UserID: "u1"}, "c1")

	if err := c.MarkSeen([]string{"m1"}); err != nil {
		t.Fatalf("MarkSeen() error = %v", err)
	}
	frame, ok := (*transports)[0].written[0].(SeenFrame)
	if !ok || frame.Type != models.SeenFrame {
		t.Fatalf("unexpected frame %+v", (*transports)[0].written[0])
	}
	if !c.Messages()[0].Seen {
		t.Error("message should be seen")
	}
}

// echoServer отвечает на каждое сообщение подтверждением с серверным ID.
func echoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			var out OutgoingMessage
			if err := ws.ReadJSON(&out); err != nil {
				return
			}
			echo := map[string]string{"id": "srv-" + out.TempID, "temp_id": out.TempID, "message": out.Message, "sender_id": "u1"}
			if err := ws.WriteJSON(echo); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSendRightAfterOpenIsDelivered(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := NewHub(context.Background(), echoServer(t), &fakeHistory{}, SocketDial(socket.DefaultBackoff()), logger)
	t.Cleanup(hub.Close)

	c, err := hub.Open(context.Background(), models.Caller{UserID: "u1", Token: "tk"}, "c1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	msg, err := c.Send(models.SendMessageRequest{Message: "hello"})
	if err != nil || msg.Failed {
		t.Fatalf("Send() = %+v, %v", msg, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		msgs := c.Messages()
		if len(msgs) == 1 && msgs[0].ID == "srv-"+msg.TempID && !msgs[0].Pending {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("message was not confirmed by the server: %+v", c.Messages())
}
