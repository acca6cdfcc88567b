package chat

import (
	"sort"
	"sync"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// Timeline - лента сообщений одной беседы.
type Timeline struct {
	mu       sync.RWMutex
	messages []models.Message
}

// NewTimeline создает пустую ленту.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Load добавляет историю с сервера. Сообщения с уже известным ID заменяются.
func (t *Timeline) Load(history []models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range history {
		t.upsert(m)
	}
	t.sort()
}

// AddPending добавляет отправленное, но еще не подтвержденное сообщение.
func (t *Timeline) AddPending(m models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m.Pending = true
	t.messages = append(t.messages, m)
	t.sort()
}

// MarkFailed помечает неотправленное сообщение.
func (t *Timeline) MarkFailed(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := t.indexByTemp(tempID); i >= 0 {
		t.messages[i].Pending = false
		t.messages[i].Failed = true
	}
}

// Apply применяет входящее событие сокета.
func (t *Timeline) Apply(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case NewMessage:
		t.upsert(e.Message)
		t.sort()
	case Seen:
		ids := make(map[string]bool, len(e.MessageIDs))
		for _, id := range e.MessageIDs {
			ids[id] = true
		}
		for i := range t.messages {
			if ids[t.messages[i].ID] {
				t.messages[i].Seen = true
			}
		}
	case Deleted:
		if i := t.indexByID(e.MessageID); i >= 0 {
			t.messages[i].Deleted = true
			t.messages[i].Content = ""
			t.messages[i].Files = nil
		}
	case FileUploaded:
		i := t.indexByID(e.MessageID)
		if i < 0 {
			i = t.indexByTemp(e.TempID)
		}
		if i >= 0 {
			t.messages[i].Files = mergeFiles(t.messages[i].Files, e.Files)
		}
	}
}

// Messages возвращает копию ленты.
func (t *Timeline) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]models.Message(nil), t.messages...)
}

// Unseen возвращает ID непрочитанных сообщений собеседника.
func (t *Timeline) Unseen(selfID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []string
	for _, m := range t.messages {
		if m.ID != "" && !m.Seen && !m.Deleted && m.SenderID != selfID {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// upsert заменяет ожидающее сообщение по temp_id или известное по ID.
func (t *Timeline) upsert(m models.Message) {
	m.Pending = false
	m.Failed = false
	if m.TempID != "" {
		if i := t.indexByTemp(m.TempID); i >= 0 {
			if len(m.Files) == 0 {
				m.Files = t.messages[i].Files
			}
			t.messages[i] = m
			t.dropDuplicateID(i)
			return
		}
	}
	if m.ID != "" {
		if i := t.indexByID(m.ID); i >= 0 {
			if len(m.Files) == 0 {
				m.Files = t.messages[i].Files
			}
			t.messages[i] = m
			return
		}
	}
	t.messages = append(t.messages, m)
}

func (t *Timeline) dropDuplicateID(keep int) {
	id := t.messages[keep].ID
	if id == "" {
		return
	}
	for i := range t.messages {
		if i != keep && t.messages[i].ID == id {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			return
		}
	}
}

func (t *Timeline) indexByID(id string) int {
	if id == "" {
		return -1
	}
	for i := range t.messages {
		if t.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Timeline) indexByTemp(tempID string) int {
	if tempID == "" {
		return -1
	}
	for i := range t.messages {
		if t.messages[i].TempID == tempID {
			return i
		}
	}
	return -1
}

func (t *Timeline) sort() {
	sort.SliceStable(t.messages, func(i, j int) bool {
		a, b := t.messages[i], t.messages[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func mergeFiles(have, add []models.Attachment) []models.Attachment {
	seen := make(map[string]bool, len(have))
	for _, f := range have {
		seen[f.ID] = true
	}
	for _, f := range add {
		if !seen[f.ID] {
			seen[f.ID] = true
			have = append(have, f)
		}
	}
	return have
}
