// Package chat сводит историю беседы, кадры сокета и отправленные, но еще
// не подтвержденные сообщения в одну ленту.
package chat

import (
	"encoding/json"
	"fmt"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// Event - разобранный входящий кадр сокета чата.
type Event interface {
	isEvent()
}

// NewMessage - новое сообщение (кадр без известного типа).
type NewMessage struct {
	Message models.Message
}

// Seen - собеседник прочитал сообщения.
type Seen struct {
	MessageIDs []string
}

// Deleted - сообщение удалено.
type Deleted struct {
	MessageID string
}

// FileUploaded - к сообщению загружены файлы.
type FileUploaded struct {
	MessageID string
	TempID    string
	Files     []models.Attachment
}

func (NewMessage) isEvent()   {}
func (Seen) isEvent()         {}
func (Deleted) isEvent()      {}
func (FileUploaded) isEvent() {}

type inboundFrame struct {
	Type       models.FrameType    `json:"type"`
	MessageIDs []string            `json:"message_ids"`
	MessageID  string              `json:"message_id"`
	TempID     string              `json:"temp_id"`
	Files      []models.Attachment `json:"files"`
}

// Decode разбирает входящий кадр.
func Decode(data []byte) (Event, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("invalid chat frame: %w", err)
	}

	switch frame.Type {
	case models.SeenFrame:
		return Seen{MessageIDs: frame.MessageIDs}, nil
	case models.MessageDeletedFrame:
		if frame.MessageID == "" {
			return nil, fmt.Errorf("message_deleted frame without message_id")
		}
		return Deleted{MessageID: frame.MessageID}, nil
	case models.FileUploadedFrame:
		return FileUploaded{MessageID: frame.MessageID, TempID: frame.TempID, Files: frame.Files}, nil
	default:
		var msg models.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid chat message: %w", err)
		}
		return NewMessage{Message: msg}, nil
	}
}

// OutgoingMessage - кадр отправки сообщения.
type OutgoingMessage struct {
	Message   string   `json:"message"`
	Files     []string `json:"files"`
	TempID    string   `json:"temp_id"`
	ReplyToID string   `json:"reply_to_id,omitempty"`
}

// SeenFrame - кадр отметки прочтения.
type SeenFrame struct {
	Type       models.FrameType `json:"type"`
	MessageIDs []string         `json:"message_ids"`
}

// NewSeenFrame собирает кадр прочтения.
func NewSeenFrame(ids []string) SeenFrame {
	return SeenFrame{Type: models.SeenFrame, MessageIDs: ids}
}
