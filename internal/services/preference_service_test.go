package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/senyabanana/assignment-desk/internal/models"
)

func TestDismissalRoundTrip(t *testing.T) {
	market := newFakeMarket()
	market.referral = models.ReferralSummary{Code: "ABC", InvitedCount: 3}
	svc := NewPreferenceService(newFakePreferences(), market)
	ctx := context.Background()

	summary, err := svc.ReferralSummary(ctx, testCaller())
	if err != nil {
		t.Fatal(err)
	}
	if summary.BannerDismissed || summary.Code != "ABC" {
		t.Errorf("unexpected summary %+v", summary)
	}

	first, err := svc.Dismiss(ctx, testCaller(), ReferralBannerKey)
	if err != nil {
		t.Fatal(err)
	}
	again, _ := svc.Dismiss(ctx, testCaller(), ReferralBannerKey)
	if !again.DismissedAt.Equal(first.DismissedAt) {
		t.Error("repeated dismiss should keep the first timestamp")
	}

	summary, _ = svc.ReferralSummary(ctx, testCaller())
	if !summary.BannerDismissed {
		t.Error("banner should be dismissed")
	}
	list, _ := svc.ListDismissals(ctx, testCaller())
	if len(list) != 1 || list[0].Key != ReferralBannerKey {
		t.Errorf("unexpected dismissals %+v", list)
	}

	if err := svc.Restore(ctx, testCaller(), ReferralBannerKey); err != nil {
		t.Fatal(err)
	}
	summary, _ = svc.ReferralSummary(ctx, testCaller())
	if summary.BannerDismissed {
		t.Error("banner should be visible again")
	}
}

func TestDismissInvalidKey(t *testing.T) {
	svc := NewPreferenceService(newFakePreferences(), newFakeMarket())
	for _, key := range []string{"", "Has Spaces", "../etc", string(make([]byte, 80))} {
		_, err := svc.Dismiss(context.Background(), testCaller(), key)
		var errorResponse *models.ErrorResponse
		if !errors.As(err, &errorResponse) || errorResponse.StatusCode != http.StatusBadRequest {
			t.Errorf("Dismiss(%q) error = %v", key, err)
		}
	}
}

func TestListConversationsMergesUpdates(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	market := newFakeMarket()
	market.conversations = []models.Conversation{
		{ID: "c1", UnreadCount: 0, UpdatedAt: t0},
		{ID: "c2", UnreadCount: 1, UpdatedAt: t0.Add(time.Minute)},
	}
	notifications := NewNotificationService(quietLogger())
	notifications.Record(models.ConversationUpdate{UserID: "client-1", Conversation: models.Conversation{ID: "c1", UnreadCount: 5, UpdatedAt: t0.Add(time.Hour)}})
	notifications.Record(models.ConversationUpdate{UserID: "client-1", Conversation: models.Conversation{ID: "c2", UnreadCount: 9, UpdatedAt: t0}})
	notifications.Record(models.ConversationUpdate{UserID: "client-1", Conversation: models.Conversation{ID: "c3", UpdatedAt: t0.Add(2 * time.Hour)}})
	notifications.Record(models.ConversationUpdate{UserID: "someone-else", Conversation: models.Conversation{ID: "c4"}})

	svc := NewChatService(market, nil, notifications)
	got, err := svc.ListConversations(context.Background(), testCaller())
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	var unread []int
	for _, c := range got {
		ids = append(ids, c.ID)
		unread = append(unread, c.UnreadCount)
	}
	if diff := cmp.Diff([]string{"c3", "c1", "c2"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 5, 1}, unread); diff != "" {
		t.Errorf("unread mismatch (-want +got):\n%s", diff)
	}
}
