package models

import "time"

type (
	Tier    string // Тип процесса назначения исполнителя
	StepKey string // Этап мастера назначения
)

const (
	QuickTier    Tier = "quick"
	StandardTier Tier = "standard"
	PremiumTier  Tier = "premium"

	ReviewStep     StepKey = "review"
	ShortlistStep  StepKey = "shortlist"
	InterviewStep  StepKey = "interview"
	InvitationStep StepKey = "invitation"
	ConfirmedStep  StepKey = "confirmed"
	FinalStep      StepKey = "final"
)

// Tiers перечисляет типы назначения от младшего к старшему.
var Tiers = []Tier{QuickTier, StandardTier, PremiumTier}

// ParseTier проверяет строку на соответствие известному типу назначения.
func ParseTier(s string) (Tier, bool) {
	for _, t := range Tiers {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// AssignmentSession - сохраненное состояние мастера назначения для пары клиент/проект.
type AssignmentSession struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	ProjectID         string    `json:"projectId"`
	Tier              Tier      `json:"tier"`
	TierOverridden    bool      `json:"tierOverridden"`
	CurrentStep       int       `json:"currentStep"`
	InterviewedBidIDs []string  `json:"interviewedBidIds"`
	AssignedBidID     string    `json:"assignedBidId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// AssignmentEvent сообщает контейнеру, что бэкенд закрепил исполнителя за проектом.
type AssignmentEvent struct {
	ProjectID           string
	AssignedFreelancers []AssignedFreelancer
	ObservedAt          time.Time
}

// TierDefinition - описание одного типа назначения для экрана выбора.
type TierDefinition struct {
	Tier           Tier      `json:"tier"`
	Title          string    `json:"title"`
	ValueRange     string    `json:"valueRange"`
	DecisionWindow string    `json:"decisionWindow"`
	Steps          []StepKey `json:"steps"`
	Recommended    bool      `json:"recommended"`
}

// TierRecommendation - результат определения типа назначения по стоимости проекта.
type TierRecommendation struct {
	ProjectValue float64          `json:"projectValue"`
	Recommended  Tier             `json:"recommended"`
	Definitions  []TierDefinition `json:"definitions"`
}

// AssignmentView - состояние мастера, отдаваемое UI.
type AssignmentView struct {
	SessionID        string                 `json:"sessionId"`
	Project          Project                `json:"project"`
	Recommendation   TierRecommendation     `json:"recommendation"`
	Tier             Tier                   `json:"tier"`
	TierOverridden   bool                   `json:"tierOverridden"`
	Steps            []StepKey              `json:"steps"`
	CurrentStep      int                    `json:"currentStep"`
	CurrentStepKey   StepKey                `json:"currentStepKey"`
	Bids             []Bid                  `json:"bids"`
	BidActions       map[string][]BidAction `json:"bidActions"`
	ShortlistCount   int                    `json:"shortlistCount"`
	ShortlistLimit   int                    `json:"shortlistLimit,omitempty"`
	InterviewedBids  []string               `json:"interviewedBidIds"`
	AssignedBid      *Bid                   `json:"assignedBid,omitempty"`
	TimeRemainingSec int64                  `json:"timeRemaining"`
	Warning          string                 `json:"warning,omitempty"`
}

// TierChangeRequest - ручной выбор типа назначения.
type TierChangeRequest struct {
	Tier string `json:"tier" validate:"required,oneof=quick standard premium"`
}

// InvitationRequest - приглашение выбранному фрилансеру.
type InvitationRequest struct {
	Message        string `json:"message" validate:"max=2000"`
	ExpiresInHours int    `json:"expires_in_hours" validate:"gte=0,lte=720"`
}

// InterviewRequest - запрос на интервью нескольким кандидатам из шорт-листа.
type InterviewRequest struct {
	BidIDs         []string `json:"bid_ids" validate:"required,min=1,dive,required"`
	Message        string   `json:"message" validate:"max=2000"`
	ExpiresInHours int      `json:"expires_in_hours" validate:"gte=0,lte=720"`
}
