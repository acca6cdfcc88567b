package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// ListConversations получает беседы пользователя.
func (c *Client) ListConversations(ctx context.Context, caller models.Caller) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := c.do(ctx, caller, http.MethodGet, "/api/chat/conversations/", nil, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// ListMessages получает историю сообщений беседы.
func (c *Client) ListMessages(ctx context.Context, caller models.Caller, conversationID string, limit, offset int) ([]models.Message, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	path := fmt.Sprintf("/api/chat/conversations/%s/messages/?%s", url.PathEscape(conversationID), query.Encode())

	var messages []models.Message
	if err := c.do(ctx, caller, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// GetReferralSummary получает сводку реферальной программы.
func (c *Client) GetReferralSummary(ctx context.Context, caller models.Caller) (models.ReferralSummary, error) {
	var summary models.ReferralSummary
	if err := c.do(ctx, caller, http.MethodGet, "/api/referrals/summary/", nil, &summary); err != nil {
		return models.ReferralSummary{}, err
	}
	return summary, nil
}
