package models

import "time"

type (
	BidState  string // Состояние предложения
	BidAction string // Действие клиента над предложением
)

const (
	SubmittedBid   BidState = "submitted"    // Предложение отправлено фрилансером
	UnderReviewBid BidState = "under_review" // Предложение в шорт-листе
	NegotiationBid BidState = "negotiation"  // Идут переговоры
	AcceptedBid    BidState = "accepted"     // Предложение принято
	RejectedBid    BidState = "rejected"     // Предложение отклонено
	WithdrawnBid   BidState = "withdrawn"    // Предложение отозвано фрилансером

	MarkUnderReview          BidAction = "mark_under_review"
	Negotiate                BidAction = "negotiate"
	Reject                   BidAction = "reject"
	Accept                   BidAction = "accept"
	SendAssignmentInvitation BidAction = "send_assignment_invitation"
)

// BidStates перечисляет все известные состояния предложения.
var BidStates = []BidState{SubmittedBid, UnderReviewBid, NegotiationBid, AcceptedBid, RejectedBid, WithdrawnBid}

// BidActions перечисляет все действия, доступные через диспетчер.
var BidActions = []BidAction{MarkUnderReview, Negotiate, Reject, Accept, SendAssignmentInvitation}

// IsTerminal сообщает, что над предложением больше нельзя выполнять действия.
func (s BidState) IsTerminal() bool {
	return s == AcceptedBid || s == RejectedBid || s == WithdrawnBid
}

// Freelancer - автор предложения.
type Freelancer struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Avatar string  `json:"avatar,omitempty"`
	Rating float64 `json:"rating"`
}

// Bid представляет модель предложения фрилансера по проекту.
type Bid struct {
	ID                   string     `json:"id"`
	TotalValue           float64    `json:"total_value"`
	DeliveryTime         int        `json:"delivery_time"`
	Proposal             string     `json:"proposal"`
	State                BidState   `json:"state"`
	Freelancer           Freelancer `json:"freelancer"`
	HasPendingInvitation bool       `json:"has_pending_invitation"`
	InvitationExpiresAt  *time.Time `json:"invitation_expires_at,omitempty"`
}

// BidActionRequest - тело запроса UI на выполнение действия над предложением.
type BidActionRequest struct {
	Action BidAction              `json:"action" validate:"required,oneof=mark_under_review negotiate reject accept send_assignment_invitation"`
	Extra  map[string]interface{} `json:"extra"`
}

// CountInState возвращает количество предложений в заданном состоянии.
func CountInState(bids []Bid, state BidState) int {
	n := 0
	for _, b := range bids {
		if b.State == state {
			n++
		}
	}
	return n
}

// FindBid ищет предложение по ID.
func FindBid(bids []Bid, bidID string) (Bid, bool) {
	for _, b := range bids {
		if b.ID == bidID {
			return b, true
		}
	}
	return Bid{}, false
}
