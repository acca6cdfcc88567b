package services

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/marketplace"
	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/repository"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testCaller() models.Caller {
	return models.Caller{UserID: "client-1", Token: "token"}
}

func newBid(id, freelancerID string, state models.BidState) models.Bid {
	return models.Bid{ID: id, State: state, TotalValue: 100, Freelancer: models.Freelancer{ID: freelancerID, Name: freelancerID}}
}

// fakeMarket - бэкенд маркетплейса в памяти. Изменяющие вызовы
// записываются в calls и меняют состояние предложений так же, как бэкенд.
type fakeMarket struct {
	mu            sync.Mutex
	projects      map[string]models.Project
	bids          map[string][]models.Bid
	calls         []string
	fetches       int
	fail          map[string]error
	invitations   []marketplace.AssignmentInvitation
	interviews    []marketplace.InterviewInvitation
	conversations []models.Conversation
	referral      models.ReferralSummary

	// block, если задан, задерживает UpdateBid до закрытия канала;
	// entered получает сигнал, когда вызов начался.
	block   chan struct{}
	entered chan struct{}
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		projects: make(map[string]models.Project),
		bids:     make(map[string][]models.Bid),
		fail:     make(map[string]error),
	}
}

func (m *fakeMarket) addProject(p models.Project, bids ...models.Bid) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	m.bids[p.ID] = bids
}

func (m *fakeMarket) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *fakeMarket) setBidState(bidID string, state models.BidState) {
	for pid, bids := range m.bids {
		for i := range bids {
			if bids[i].ID == bidID {
				m.bids[pid][i].State = state
			}
		}
	}
}

func (m *fakeMarket) GetProject(ctx context.Context, caller models.Caller, projectID string) (models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	p, ok := m.projects[projectID]
	if !ok {
		return models.Project{}, &marketplace.BackendError{StatusCode: 404, Message: "Project not found"}
	}
	return p, nil
}

func (m *fakeMarket) GetBids(ctx context.Context, caller models.Caller, projectID string) ([]models.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Bid{}, m.bids[projectID]...), nil
}

var endpointStates = map[marketplace.Endpoint]models.BidState{
	marketplace.MarkBidUnderReview: models.UnderReviewBid,
	marketplace.MarkBidSubmitted:   models.SubmittedBid,
	marketplace.AcceptBid:          models.AcceptedBid,
	marketplace.RejectBid:          models.RejectedBid,
	marketplace.NegotiateBid:       models.NegotiationBid,
}

func (m *fakeMarket) UpdateBid(ctx context.Context, caller models.Caller, endpoint marketplace.Endpoint, update marketplace.BidUpdate) error {
	m.mu.Lock()
	m.calls = append(m.calls, fmt.Sprintf("%s:%s", endpoint, update.BidID))
	block, entered := m.block, m.entered
	m.mu.Unlock()

	if block != nil {
		entered <- struct{}{}
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[string(endpoint)]; err != nil {
		return err
	}
	m.setBidState(update.BidID, endpointStates[endpoint])
	return nil
}

func (m *fakeMarket) CreateAssignmentInvitation(ctx context.Context, caller models.Caller, inv marketplace.AssignmentInvitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "create_project_assignment:"+inv.BidID)
	if err := m.fail["create_project_assignment"]; err != nil {
		return err
	}
	m.invitations = append(m.invitations, inv)
	for pid, bids := range m.bids {
		for i := range bids {
			if bids[i].ID == inv.BidID {
				m.bids[pid][i].HasPendingInvitation = true
			}
		}
	}
	return nil
}

func (m *fakeMarket) CreateInterviewRequest(ctx context.Context, caller models.Caller, inv marketplace.InterviewInvitation) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("create_interview_request:%d", len(inv.BidIDs)))
	m.interviews = append(m.interviews, inv)
	return len(inv.BidIDs), nil
}

func (m *fakeMarket) ListConversations(ctx context.Context, caller models.Caller) ([]models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Conversation(nil), m.conversations...), nil
}

func (m *fakeMarket) ListMessages(ctx context.Context, caller models.Caller, conversationID string, limit, offset int) ([]models.Message, error) {
	return []models.Message{}, nil
}

func (m *fakeMarket) GetReferralSummary(ctx context.Context, caller models.Caller) (models.ReferralSummary, error) {
	return m.referral, nil
}

// fakeSessions - SessionRepository в памяти.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]models.AssignmentSession
	saves    int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]models.AssignmentSession)}
}

func (r *fakeSessions) GetSession(ctx context.Context, userID, projectID string) (*models.AssignmentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID+":"+projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *fakeSessions) SaveSession(ctx context.Context, session *models.AssignmentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == "" {
		session.ID = fmt.Sprintf("session-%d", len(r.sessions)+1)
		session.CreatedAt = time.Now()
	}
	session.UpdatedAt = time.Now()
	r.sessions[session.UserID+":"+session.ProjectID] = *session
	r.saves++
	return nil
}

func (r *fakeSessions) DeleteSession(ctx context.Context, userID, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID+":"+projectID)
	return nil
}

func (r *fakeSessions) get(userID, projectID string) (models.AssignmentSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID+":"+projectID]
	return s, ok
}

// fakePreferences - PreferenceRepository в памяти.
type fakePreferences struct {
	mu         sync.Mutex
	dismissals map[string]models.Dismissal
}

func newFakePreferences() *fakePreferences {
	return &fakePreferences{dismissals: make(map[string]models.Dismissal)}
}

func (r *fakePreferences) ListDismissals(ctx context.Context, userID string) ([]models.Dismissal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Dismissal{}
	for _, d := range r.dismissals {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakePreferences) Dismiss(ctx context.Context, userID, key string) (*models.Dismissal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dismissals[userID+":"+key]
	if !ok {
		d = models.Dismissal{UserID: userID, Key: key, DismissedAt: time.Now()}
		r.dismissals[userID+":"+key] = d
	}
	return &d, nil
}

func (r *fakePreferences) IsDismissed(ctx context.Context, userID, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.dismissals[userID+":"+key]
	return ok, nil
}

func (r *fakePreferences) Restore(ctx context.Context, userID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dismissals, userID+":"+key)
	return nil
}
