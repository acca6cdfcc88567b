package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/senyabanana/assignment-desk/internal/models"
)

// Endpoint - эндпоинт изменения состояния предложения.
type Endpoint string

const (
	MarkBidUnderReview Endpoint = "mark_bid_under_review"
	MarkBidSubmitted   Endpoint = "mark_bid_submitted"
	AcceptBid          Endpoint = "accept_bid"
	RejectBid          Endpoint = "reject_bid"
	NegotiateBid       Endpoint = "negotiate_bid"
)

// EndpointFor возвращает эндпоинт для действия диспетчера. Для приглашения
// на назначение используется отдельный вызов.
func EndpointFor(action models.BidAction) (Endpoint, bool) {
	switch action {
	case models.MarkUnderReview:
		return MarkBidUnderReview, true
	case models.Accept:
		return AcceptBid, true
	case models.Reject:
		return RejectBid, true
	case models.Negotiate:
		return NegotiateBid, true
	default:
		return "", false
	}
}

// BidUpdate - тело запроса изменения состояния предложения.
type BidUpdate struct {
	BidID             string
	ProjectComplexity models.ComplexityLevel
	Extra             map[string]interface{}
}

func (u BidUpdate) body() map[string]interface{} {
	body := make(map[string]interface{}, len(u.Extra)+2)
	for k, v := range u.Extra {
		body[k] = v
	}
	body["bid_id"] = u.BidID
	body["project_complexity"] = u.ProjectComplexity
	return body
}

// AssignmentInvitation - приглашение фрилансера на проект.
type AssignmentInvitation struct {
	BidID          string `json:"bid_id"`
	Message        string `json:"message"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// InterviewInvitation - запрос на интервью для нескольких предложений.
type InterviewInvitation struct {
	BidIDs         []string `json:"bid_ids"`
	Message        string   `json:"message"`
	ExpiresInHours int      `json:"expires_in_hours"`
}

// GetProject получает проект по ID.
func (c *Client) GetProject(ctx context.Context, caller models.Caller, projectID string) (models.Project, error) {
	var project models.Project
	path := fmt.Sprintf("/api/client/get_project/%s", url.PathEscape(projectID))
	if err := c.do(ctx, caller, http.MethodGet, path, nil, &project); err != nil {
		return models.Project{}, err
	}
	return project, nil
}

// GetBids получает все предложения по проекту.
func (c *Client) GetBids(ctx context.Context, caller models.Caller, projectID string) ([]models.Bid, error) {
	var resp struct {
		Bids []models.Bid `json:"bids"`
	}
	path := fmt.Sprintf("/api/client/get_bids_on_project/%s", url.PathEscape(projectID))
	if err := c.do(ctx, caller, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Bids == nil {
		resp.Bids = []models.Bid{}
	}
	return resp.Bids, nil
}

// UpdateBid меняет состояние предложения через один из эндпоинтов клиента.
func (c *Client) UpdateBid(ctx context.Context, caller models.Caller, endpoint Endpoint, update BidUpdate) error {
	path := fmt.Sprintf("/api/client/%s/", endpoint)
	return c.postStatus(ctx, caller, path, update.body(), nil)
}

// CreateAssignmentInvitation отправляет фрилансеру приглашение на проект.
func (c *Client) CreateAssignmentInvitation(ctx context.Context, caller models.Caller, inv AssignmentInvitation) error {
	return c.postStatus(ctx, caller, "/api/client/invitations/create_project_assignment/", inv, nil)
}

// CreateInterviewRequest приглашает авторов предложений на интервью и
// возвращает количество созданных приглашений. Ответ бэкенда -
// {created_invitations}; поле status может отсутствовать.
func (c *Client) CreateInterviewRequest(ctx context.Context, caller models.Caller, inv InterviewInvitation) (int, error) {
	var resp struct {
		statusResponse
		CreatedInvitations int `json:"created_invitations"`
	}
	if err := c.do(ctx, caller, http.MethodPost, "/api/client/invitations/create_interview_request/", inv, &resp); err != nil {
		return 0, err
	}
	if resp.Status != "" && resp.Status != "success" {
		return 0, &BackendError{StatusCode: http.StatusOK, Message: resp.text()}
	}
	return resp.CreatedInvitations, nil
}
