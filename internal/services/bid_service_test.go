package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/senyabanana/assignment-desk/internal/assignment"
	"github.com/senyabanana/assignment-desk/internal/models"
)

func lookupOf(project models.Project, bid models.Bid) BidLookup {
	return func() (models.Project, models.Bid, error) { return project, bid, nil }
}

func TestDispatchValidatesBeforeCalling(t *testing.T) {
	market := newFakeMarket()
	svc := NewBidService(market, quietLogger())
	project := fixedProject("p1", 300, models.EntryLevel)

	tests := []struct {
		name   string
		state  models.BidState
		action models.BidAction
		call   string
	}{
		{"mark under review", models.SubmittedBid, models.MarkUnderReview, "mark_bid_under_review:b1"},
		{"reject submitted", models.SubmittedBid, models.Reject, "reject_bid:b1"},
		{"accept under review", models.UnderReviewBid, models.Accept, "accept_bid:b1"},
		{"invite under review", models.UnderReviewBid, models.SendAssignmentInvitation, "create_project_assignment:b1"},
		{"accept submitted", models.SubmittedBid, models.Accept, ""},
		{"negotiate on entry", models.SubmittedBid, models.Negotiate, ""},
		{"reject accepted", models.AcceptedBid, models.Reject, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			market.mu.Lock()
			market.calls = nil
			market.mu.Unlock()

			err := svc.Dispatch(context.Background(), testCaller(), "b1", tt.action, nil, lookupOf(project, newBid("b1", "f1", tt.state)), Optimistic{})

			if tt.call == "" {
				var validationErr *assignment.ValidationError
				if !errors.As(err, &validationErr) {
					t.Fatalf("Dispatch() error = %v, want ValidationError", err)
				}
				if len(market.callLog()) != 0 {
					t.Errorf("unexpected calls %v", market.callLog())
				}
				return
			}
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if diff := cmp.Diff([]string{tt.call}, market.callLog()); diff != "" {
				t.Errorf("calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDispatchInvitationExtra(t *testing.T) {
	market := newFakeMarket()
	svc := NewBidService(market, quietLogger())
	project := fixedProject("p1", 5000, models.AdvancedLevel)
	bid := newBid("b1", "f1", models.UnderReviewBid)

	if err := svc.Dispatch(context.Background(), testCaller(), "b1", models.SendAssignmentInvitation, nil, lookupOf(project, bid), Optimistic{}); err != nil {
		t.Fatal(err)
	}
	extra := map[string]interface{}{"message": "hi", "expires_in_hours": float64(6)}
	if err := svc.Dispatch(context.Background(), testCaller(), "b1", models.SendAssignmentInvitation, extra, lookupOf(project, bid), Optimistic{}); err != nil {
		t.Fatal(err)
	}

	if got := market.invitations[0]; got.ExpiresInHours != 72 || got.Message != "" {
		t.Errorf("default invitation = %+v", got)
	}
	if got := market.invitations[1]; got.ExpiresInHours != 6 || got.Message != "hi" {
		t.Errorf("invitation with extra = %+v", got)
	}
}

func TestDispatchOptimisticHooks(t *testing.T) {
	market := newFakeMarket()
	svc := NewBidService(market, quietLogger())
	project := fixedProject("p1", 1000, models.IntermediateLevel)

	var events []string
	opt := Optimistic{
		Apply: func(bid models.Bid) func() {
			events = append(events, "apply:"+string(bid.State))
			if !svc.locks.Busy("b1") {
				t.Error("apply must run while the bid is locked")
			}
			return func() { events = append(events, "rollback") }
		},
		Settle: func(rollback func()) {
			events = append(events, "settle")
			rollback()
		},
	}

	if err := svc.Dispatch(context.Background(), testCaller(), "b1", models.Reject, nil, lookupOf(project, newBid("b1", "f1", models.SubmittedBid)), opt); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	market.fail["reject_bid"] = errors.New("backend down")
	if err := svc.Dispatch(context.Background(), testCaller(), "b1", models.Reject, nil, lookupOf(project, newBid("b1", "f1", models.SubmittedBid)), opt); err == nil {
		t.Fatal("Dispatch() error = nil, want backend failure")
	}

	want := []string{"apply:submitted", "settle", "rollback", "apply:submitted", "rollback"}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	if svc.locks.Busy("b1") {
		t.Error("lock leaked")
	}
}

func TestExclusiveAll(t *testing.T) {
	svc := NewBidService(newFakeMarket(), quietLogger())

	err := svc.Exclusive("b2", func() error {
		return svc.ExclusiveAll([]string{"b1", "b2"}, func() error {
			t.Error("fn must not run while b2 is busy")
			return nil
		})
	})
	if !errors.Is(err, assignment.ErrActionInFlight) {
		t.Fatalf("ExclusiveAll() error = %v", err)
	}
	if svc.locks.Busy("b1") || svc.locks.Busy("b2") {
		t.Error("locks leaked")
	}
}

func TestUnshortlistRequiresShortlistedBid(t *testing.T) {
	market := newFakeMarket()
	svc := NewBidService(market, quietLogger())
	project := fixedProject("p1", 1000, models.IntermediateLevel)

	if err := svc.Unshortlist(context.Background(), testCaller(), project, newBid("b1", "f1", models.SubmittedBid)); !errors.Is(err, assignment.ErrNotShortlistable) {
		t.Errorf("Unshortlist() error = %v", err)
	}
	if err := svc.Unshortlist(context.Background(), testCaller(), project, newBid("b1", "f1", models.UnderReviewBid)); err != nil {
		t.Errorf("Unshortlist() error = %v", err)
	}
	if diff := cmp.Diff([]string{"mark_bid_submitted:b1"}, market.callLog()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
