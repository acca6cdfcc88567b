package models

import "time"

// FrameType - тип кадра чата, приходящего из сокета.
type FrameType string

const (
	FileUploadedFrame   FrameType = "file_uploaded"
	SeenFrame           FrameType = "seen"
	MessageDeletedFrame FrameType = "message_deleted"
)

// Attachment - файл, прикрепленный к сообщению.
type Attachment struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Participant - собеседник в беседе.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// Conversation представляет беседу между клиентом и фрилансером.
type Conversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	LastMessage  *Message      `json:"last_message,omitempty"`
	UnreadCount  int           `json:"unread_count"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Message представляет сообщение чата.
type Message struct {
	ID             string       `json:"id,omitempty"`
	TempID         string       `json:"temp_id,omitempty"`
	ConversationID string       `json:"conversation_id,omitempty"`
	SenderID       string       `json:"sender_id,omitempty"`
	Content        string       `json:"message"`
	Files          []Attachment `json:"files,omitempty"`
	ReplyToID      string       `json:"reply_to_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	Seen           bool         `json:"seen"`
	Deleted        bool         `json:"deleted,omitempty"`
	Pending        bool         `json:"pending,omitempty"`
	Failed         bool         `json:"failed,omitempty"`
}

// SendMessageRequest - тело запроса UI на отправку сообщения.
type SendMessageRequest struct {
	Message   string   `json:"message" validate:"required_without=FileIDs,max=5000"`
	FileIDs   []string `json:"files"`
	ReplyToID string   `json:"reply_to_id"`
}

// SeenRequest - отметка сообщений прочитанными.
type SeenRequest struct {
	MessageIDs []string `json:"message_ids" validate:"required,min=1,dive,required"`
}
