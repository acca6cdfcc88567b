package assignment

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/senyabanana/assignment-desk/internal/models"
)

func TestIsActionAllowedTable(t *testing.T) {
	byState := map[models.BidState]map[models.BidAction]bool{
		models.SubmittedBid:   {models.MarkUnderReview: true, models.Negotiate: true, models.Reject: true},
		models.UnderReviewBid: {models.Accept: true, models.Reject: true, models.SendAssignmentInvitation: true},
		models.NegotiationBid: {models.Accept: true, models.Reject: true},
		models.AcceptedBid:    {},
		models.RejectedBid:    {},
		models.WithdrawnBid:   {},
	}
	byComplexity := map[models.ComplexityLevel]map[models.BidAction]bool{
		models.EntryLevel: {
			models.MarkUnderReview: true, models.Reject: true, models.Accept: true, models.SendAssignmentInvitation: true,
		},
		models.IntermediateLevel: {
			models.MarkUnderReview: true, models.Negotiate: true, models.Reject: true, models.Accept: true, models.SendAssignmentInvitation: true,
		},
		models.AdvancedLevel: {
			models.MarkUnderReview: true, models.Negotiate: true, models.Reject: true, models.Accept: true, models.SendAssignmentInvitation: true,
		},
	}

	levels := []models.ComplexityLevel{models.EntryLevel, models.IntermediateLevel, models.AdvancedLevel, "unknown"}
	for _, level := range levels {
		for _, state := range models.BidStates {
			for _, action := range models.BidActions {
				want := byComplexity[level][action] && byState[state][action]
				got := IsActionAllowed(level, state, action)
				if got != want {
					t.Errorf("IsActionAllowed(%s, %s, %s) = %v, want %v", level, state, action, got, want)
				}
				// повторный вызов дает тот же результат
				if again := IsActionAllowed(level, state, action); again != got {
					t.Errorf("IsActionAllowed(%s, %s, %s) is not deterministic", level, state, action)
				}
			}
		}
	}
}

func TestCheckActionReportsStage(t *testing.T) {
	err := CheckAction(models.EntryLevel, models.SubmittedBid, models.Negotiate)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != `action "negotiate" is not available for "entry" projects` {
		t.Errorf("unexpected reason: %s", verr.Reason)
	}

	err = CheckAction(models.EntryLevel, models.SubmittedBid, models.Accept)
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != `action "accept" is not allowed for a bid in state "submitted"` {
		t.Errorf("unexpected reason: %s", verr.Reason)
	}
}

func TestTerminalStatesHaveNoActions(t *testing.T) {
	for _, state := range models.BidStates {
		if state.IsTerminal() && len(AllowedActions(models.AdvancedLevel, state)) != 0 {
			t.Errorf("terminal state %s exposes actions %v", state, AllowedActions(models.AdvancedLevel, state))
		}
	}
}

func TestAllowedActionsMatchDispatcher(t *testing.T) {
	if diff := cmp.Diff([]models.BidAction{models.MarkUnderReview, models.Reject}, AllowedActions(models.EntryLevel, models.SubmittedBid)); diff != "" {
		t.Errorf("entry/submitted mismatch (-want +got):\n%s", diff)
	}

	for _, level := range []models.ComplexityLevel{models.EntryLevel, models.IntermediateLevel, models.AdvancedLevel} {
		for _, state := range models.BidStates {
			allowed := AllowedActions(level, state)
			for _, action := range models.BidActions {
				want := IsActionAllowed(level, state, action)
				got := false
				for _, a := range allowed {
					got = got || a == action
				}
				if got != want {
					t.Errorf("AllowedActions(%s, %s) has %s = %v, IsActionAllowed = %v", level, state, action, got, want)
				}
			}
		}
	}
}
