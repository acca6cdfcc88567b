package assignment

import (
	"fmt"

	"github.com/senyabanana/assignment-desk/internal/models"
)

var allowedByState = map[models.BidState][]models.BidAction{
	models.SubmittedBid:   {models.MarkUnderReview, models.Negotiate, models.Reject},
	models.UnderReviewBid: {models.Accept, models.Reject, models.SendAssignmentInvitation},
	models.NegotiationBid: {models.Accept, models.Reject},
	models.AcceptedBid:    {},
	models.RejectedBid:    {},
	models.WithdrawnBid:   {},
}

var allowedByComplexity = map[models.ComplexityLevel][]models.BidAction{
	models.EntryLevel:        {models.MarkUnderReview, models.Reject, models.Accept, models.SendAssignmentInvitation},
	models.IntermediateLevel: {models.MarkUnderReview, models.Negotiate, models.Reject, models.Accept, models.SendAssignmentInvitation},
	models.AdvancedLevel:     {models.MarkUnderReview, models.Negotiate, models.Reject, models.Accept, models.SendAssignmentInvitation},
}

// AllowedActions возвращает действия, которые сейчас можно выполнить над
// предложением, в порядке models.BidActions.
func AllowedActions(level models.ComplexityLevel, state models.BidState) []models.BidAction {
	actions := []models.BidAction{}
	for _, a := range models.BidActions {
		if containsAction(allowedByComplexity[level], a) && containsAction(allowedByState[state], a) {
			actions = append(actions, a)
		}
	}
	return actions
}

// IsActionAllowed проверяет действие сначала по сложности проекта, затем по
// состоянию предложения. Чистая функция.
func IsActionAllowed(level models.ComplexityLevel, state models.BidState, action models.BidAction) bool {
	return CheckAction(level, state, action) == nil
}

// CheckAction работает как IsActionAllowed, но объясняет отказ.
func CheckAction(level models.ComplexityLevel, state models.BidState, action models.BidAction) error {
	if !containsAction(allowedByComplexity[level], action) {
		return &ValidationError{
			Action: action,
			Reason: fmt.Sprintf("action %q is not available for %q projects", action, level),
		}
	}
	if !containsAction(allowedByState[state], action) {
		return &ValidationError{
			Action: action,
			Reason: fmt.Sprintf("action %q is not allowed for a bid in state %q", action, state),
		}
	}
	return nil
}

func containsAction(actions []models.BidAction, action models.BidAction) bool {
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}
