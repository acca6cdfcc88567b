package services

import (
	"context"

	"github.com/senyabanana/assignment-desk/internal/marketplace"
	"github.com/senyabanana/assignment-desk/internal/models"
)

// Marketplace - вызовы бэкенда маркетплейса, нужные сервисам.
// *marketplace.Client реализует этот интерфейс.
type Marketplace interface {
	GetProject(ctx context.Context, caller models.Caller, projectID string) (models.Project, error)
	GetBids(ctx context.Context, caller models.Caller, projectID string) ([]models.Bid, error)
	UpdateBid(ctx context.Context, caller models.Caller, endpoint marketplace.Endpoint, update marketplace.BidUpdate) error
	CreateAssignmentInvitation(ctx context.Context, caller models.Caller, inv marketplace.AssignmentInvitation) error
	CreateInterviewRequest(ctx context.Context, caller models.Caller, inv marketplace.InterviewInvitation) (int, error)
	ListConversations(ctx context.Context, caller models.Caller) ([]models.Conversation, error)
	ListMessages(ctx context.Context, caller models.Caller, conversationID string, limit, offset int) ([]models.Message, error)
	GetReferralSummary(ctx context.Context, caller models.Caller) (models.ReferralSummary, error)
}

var _ Marketplace = (*marketplace.Client)(nil)
