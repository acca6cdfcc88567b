package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/senyabanana/assignment-desk/internal/assignment"
	"github.com/senyabanana/assignment-desk/internal/marketplace"
	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/repository"
)

const (
	// DefaultInterviewHours - срок ответа на запрос интервью, если клиент его не указал.
	DefaultInterviewHours = 48
	// DefaultIdleTTL - через сколько неиспользуемый мастер выгружается из памяти.
	DefaultIdleTTL = 30 * time.Minute
)

// TrackedProject - проект с открытым мастером, который еще не закреплен за исполнителем.
type TrackedProject struct {
	Caller    models.Caller
	ProjectID string
}

// projectState - мастер назначения одного пользователя по одному проекту.
type projectState struct {
	projectID string
	lastUsed  time.Time // под AssignmentService.mu

	mu      sync.Mutex
	caller  models.Caller
	session models.AssignmentSession
	project models.Project
	wizard  *assignment.Wizard
	board   *assignment.Board
}

// AssignmentService собирает проект, предложения и мастер назначения
// нужного типа и выполняет действия мастера.
type AssignmentService struct {
	Market   Marketplace
	Sessions repository.SessionRepository
	Bids     *BidService
	IdleTTL  time.Duration
	logger   *logrus.Logger
	now      func() time.Time

	mu     sync.Mutex
	states map[string]*projectState
	group  singleflight.Group
}

// NewAssignmentService создает новый экземпляр AssignmentService.
func NewAssignmentService(market Marketplace, sessions repository.SessionRepository, bids *BidService, logger *logrus.Logger) *AssignmentService {
	return &AssignmentService{
		Market:   market,
		Sessions: sessions,
		Bids:     bids,
		IdleTTL:  DefaultIdleTTL,
		logger:   logger,
		now:      time.Now,
		states:   make(map[string]*projectState),
	}
}

func stateKey(userID, projectID string) string {
	return userID + ":" + projectID
}

func errBidNotFound(bidID string) error {
	return models.NewErrorResponse(http.StatusNotFound, fmt.Sprintf("bid %s not found on this project", bidID))
}

type snapshot struct {
	project models.Project
	bids    []models.Bid
}

// fetch загружает проект и предложения параллельно. Одновременные запросы
// одного пользователя по одному проекту схлопываются в один.
func (s *AssignmentService) fetch(ctx context.Context, caller models.Caller, projectID string) (models.Project, []models.Bid, error) {
	v, err, _ := s.group.Do(stateKey(caller.UserID, projectID), func() (interface{}, error) {
		var snap snapshot
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			project, err := s.Market.GetProject(gctx, caller, projectID)
			if err != nil {
				return fmt.Errorf("failed to get project %s: %w", projectID, err)
			}
			snap.project = project
			return nil
		})
		g.Go(func() error {
			bids, err := s.Market.GetBids(gctx, caller, projectID)
			if err != nil {
				return fmt.Errorf("failed to get bids for project %s: %w", projectID, err)
			}
			snap.bids = bids
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return snap, nil
	})
	if err != nil {
		return models.Project{}, nil, err
	}
	snap := v.(snapshot)
	return snap.project, append([]models.Bid(nil), snap.bids...), nil
}

func buildWizard(session models.AssignmentSession, project models.Project) *assignment.Wizard {
	if session.TierOverridden {
		return assignment.RestoreWizard(session)
	}
	tier := assignment.Resolve(project, "")
	if session.ID != "" && session.Tier == tier {
		return assignment.RestoreWizard(session)
	}
	return assignment.NewWizard(tier)
}

// state возвращает мастер из памяти или собирает его заново. fresh = true,
// если проект и предложения только что загружены.
func (s *AssignmentService) state(ctx context.Context, caller models.Caller, projectID string) (st *projectState, fresh bool, err error) {
	key := stateKey(caller.UserID, projectID)

	s.mu.Lock()
	st, ok := s.states[key]
	if ok {
		st.lastUsed = s.now()
	}
	s.mu.Unlock()
	if ok {
		st.mu.Lock()
		st.caller = caller
		st.mu.Unlock()
		return st, false, nil
	}

	project, bids, err := s.fetch(ctx, caller, projectID)
	if err != nil {
		return nil, false, err
	}

	session, err := s.Sessions.GetSession(ctx, caller.UserID, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		session = &models.AssignmentSession{UserID: caller.UserID, ProjectID: projectID}
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to load assignment session: %w", err)
	}

	st = &projectState{
		projectID: projectID,
		caller:    caller,
		session:   *session,
		project:   project,
		wizard:    buildWizard(*session, project),
		board:     assignment.NewBoard(bids),
	}
	st.wizard.ObserveAssignment(project.AssignedFreelancers, bids)
	tier := st.wizard.Tier()

	s.mu.Lock()
	if existing, ok := s.states[key]; ok {
		existing.lastUsed = s.now()
		s.mu.Unlock()
		return existing, false, nil
	}
	st.lastUsed = s.now()
	s.states[key] = st
	s.mu.Unlock()

	st.mu.Lock()
	s.persistLocked(ctx, st)
	st.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"user": caller.UserID, "project": projectID, "tier": tier}).
		Info("Event ID: ASSIGNMENT_OPENED, Description: assignment wizard loaded")
	return st, true, nil
}

func (s *AssignmentService) persistLocked(ctx context.Context, st *projectState) {
	st.wizard.Snapshot(&st.session)
	if err := s.Sessions.SaveSession(ctx, &st.session); err != nil {
		s.logger.WithFields(logrus.Fields{"user": st.caller.UserID, "project": st.projectID}).
			Warnf("Event ID: SESSION_SAVE_FAILED, Description: %v", err)
	}
}

// refresh перезапрашивает проект и предложения и применяет их к мастеру.
func (s *AssignmentService) refresh(ctx context.Context, caller models.Caller, st *projectState) error {
	project, bids, err := s.fetch(ctx, caller, st.projectID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.project = project
	st.board.Replace(bids)
	if st.wizard.ObserveAssignment(project.AssignedFreelancers, bids) {
		s.logger.WithFields(logrus.Fields{"user": caller.UserID, "project": st.projectID}).
			Info("Event ID: ASSIGNMENT_OBSERVED, Description: project assigned, wizard moved to the last step")
		s.persistLocked(ctx, st)
	}
	return nil
}

// settle обновляет список после успешного действия и снимает оптимистичное
// состояние. Если список перезапросить не удалось, подтверждает state локально.
func (s *AssignmentService) settle(ctx context.Context, caller models.Caller, st *projectState, bidID string, state models.BidState, rollback func()) {
	defer rollback()
	if err := s.refresh(ctx, caller, st); err != nil {
		s.logger.WithFields(logrus.Fields{"project": st.projectID, "bid": bidID}).
			Warnf("Event ID: BIDS_REFRESH_FAILED, Description: %v", err)
		if state != "" {
			st.board.Confirm(bidID, state)
		}
	}
}

func (s *AssignmentService) viewLocked(st *projectState) *models.AssignmentView {
	bids := st.board.View()
	view := &models.AssignmentView{
		SessionID:        st.session.ID,
		Project:          st.project,
		Recommendation:   assignment.Recommend(st.project),
		Tier:             st.wizard.Tier(),
		TierOverridden:   st.session.TierOverridden,
		Steps:            st.wizard.Steps(),
		CurrentStep:      st.wizard.Current(),
		CurrentStepKey:   st.wizard.CurrentKey(),
		Bids:             bids,
		ShortlistCount:   models.CountInState(bids, models.UnderReviewBid),
		ShortlistLimit:   st.wizard.ShortlistLimit(),
		InterviewedBids:  st.wizard.Interviewed(),
		TimeRemainingSec: int64(assignment.TimeRemaining(st.project, s.now()) / time.Second),
	}
	view.BidActions = make(map[string][]models.BidAction, len(bids))
	for _, b := range bids {
		view.BidActions[b.ID] = assignment.AllowedActions(st.project.ComplexityLevel, b.State)
	}
	if view.InterviewedBids == nil {
		view.InterviewedBids = []string{}
	}
	if b := st.wizard.AssignedBid(); b != nil {
		assigned := *b
		view.AssignedBid = &assigned
	}
	if !st.wizard.IsTerminal() {
		state := assignment.State{Project: st.project, Bids: st.board.Confirmed()}
		if ok, warning := assignment.CanAdvance(st.wizard.Tier(), st.wizard.CurrentKey(), state); !ok {
			view.Warning = warning
		}
	}
	return view
}

// Open возвращает текущее состояние мастера с актуальными проектом и предложениями.
func (s *AssignmentService) Open(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
	st, fresh, err := s.state(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}
	if !fresh {
		if err := s.refresh(ctx, caller, st); err != nil {
			return nil, err
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return s.viewLocked(st), nil
}

// Refresh перезапрашивает проект и предложения.
func (s *AssignmentService) Refresh(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
	return s.Open(ctx, caller, projectID)
}

// ChangeTier задает тип назначения вручную. Мастер начинается с первого этапа.
func (s *AssignmentService) ChangeTier(ctx context.Context, caller models.Caller, projectID string, tier models.Tier) (*models.AssignmentView, error) {
	st, _, err := s.state(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.TierOverridden && st.wizard.Tier() == tier {
		return s.viewLocked(st), nil
	}

	st.wizard = assignment.NewWizard(tier)
	st.session.TierOverridden = true
	st.wizard.ObserveAssignment(st.project.AssignedFreelancers, st.board.Confirmed())
	s.persistLocked(ctx, st)

	s.logger.WithFields(logrus.Fields{"user": caller.UserID, "project": projectID, "tier": tier}).
		Info("Event ID: TIER_CHANGED, Description: assignment tier overridden")
	return s.viewLocked(st), nil
}

func (s *AssignmentService) move(ctx context.Context, caller models.Caller, projectID string, fn func(st *projectState) error) (*models.AssignmentView, error) {
	st, _, err := s.state(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if err := fn(st); err != nil {
		return nil, err
	}
	s.persistLocked(ctx, st)
	return s.viewLocked(st), nil
}

// Next переходит на следующий этап, если условие текущего выполнено.
func (s *AssignmentService) Next(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
	return s.move(ctx, caller, projectID, func(st *projectState) error {
		return st.wizard.Next(assignment.State{Project: st.project, Bids: st.board.Confirmed()})
	})
}

// Previous возвращает на предыдущий этап.
func (s *AssignmentService) Previous(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
	return s.move(ctx, caller, projectID, func(st *projectState) error {
		st.wizard.Previous()
		return nil
	})
}

// Skip пропускает необязательный этап интервью.
func (s *AssignmentService) Skip(ctx context.Context, caller models.Caller, projectID string) (*models.AssignmentView, error) {
	return s.move(ctx, caller, projectID, func(st *projectState) error {
		return st.wizard.Skip(assignment.State{Project: st.project, Bids: st.board.Confirmed()})
	})
}

// ToggleShortlist добавляет предложение в шорт-лист или убирает из него.
// Состояние предложения читается из подтвержденного списка под блокировкой
// предложения; блокировка держится до обновления списка.
func (s *AssignmentService) ToggleShortlist(ctx context.Context, caller models.Caller, projectID, bidID string) (*models.AssignmentView, error) {
	st, _, err := s.state(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	err = s.Bids.Exclusive(bidID, func() error {
		st.mu.Lock()
		bid, ok := st.board.ConfirmedBid(bidID)
		if !ok {
			st.mu.Unlock()
			return errBidNotFound(bidID)
		}
		if !st.wizard.HasStep(models.ShortlistStep) {
			st.mu.Unlock()
			return assignment.ErrNoShortlistStep
		}

		var target models.BidState
		switch bid.State {
		case models.SubmittedBid:
			limit := st.wizard.ShortlistLimit()
			if limit > 0 && models.CountInState(st.board.View(), models.UnderReviewBid) >= limit {
				st.mu.Unlock()
				return assignment.ErrShortlistFull
			}
			target = models.UnderReviewBid
		case models.UnderReviewBid:
			target = models.SubmittedBid
		default:
			st.mu.Unlock()
			return assignment.ErrNotShortlistable
		}
		project := st.project
		rollback := st.board.Apply(bidID, target)
		st.mu.Unlock()

		var err error
		if target == models.UnderReviewBid {
			err = s.Bids.Perform(ctx, caller, project, bid, models.MarkUnderReview, nil)
		} else {
			err = s.Bids.Unshortlist(ctx, caller, project, bid)
		}
		if err != nil {
			rollback()
			return err
		}
		s.settle(ctx, caller, st, bidID, target, rollback)
		return nil
	})
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return s.viewLocked(st), nil
}

// RequestInterviews отправляет запросы на интервью авторам предложений из
// шорт-листа. Доступно только для premium-назначения.
func (s *AssignmentService) RequestInterviews(ctx context.Context, caller models.Caller, projectID string, req models.InterviewRequest) (int, *models.AssignmentView, error) {
	st, _, err := s.state(ctx, caller, projectID)
	if err != nil {
		return 0, nil, err
	}

	ids := uniqueIDs(req.BidIDs)
	hours := req.ExpiresInHours
	if hours <= 0 {
		hours = DefaultInterviewHours
	}

	var created int
	err = s.Bids.ExclusiveAll(ids, func() error {
		st.mu.Lock()
		if st.wizard.Tier() != models.PremiumTier {
			st.mu.Unlock()
			return assignment.ErrInterviewsNotUsed
		}
		for _, id := range ids {
			bid, ok := st.board.ConfirmedBid(id)
			if !ok {
				st.mu.Unlock()
				return errBidNotFound(id)
			}
			if bid.State != models.UnderReviewBid {
				st.mu.Unlock()
				return assignment.ErrNotShortlisted
			}
		}
		st.mu.Unlock()

		n, err := s.Market.CreateInterviewRequest(ctx, caller, marketplace.InterviewInvitation{
			BidIDs:         ids,
			Message:        req.Message,
			ExpiresInHours: hours,
		})
		if err != nil {
			return err
		}
		created = n

		st.mu.Lock()
		st.wizard.MarkInterviewed(ids)
		st.wizard.AdvanceTo(models.InterviewStep)
		s.persistLocked(ctx, st)
		st.mu.Unlock()

		s.settle(ctx, caller, st, "", "", func() {})
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	s.logger.WithFields(logrus.Fields{"user": caller.UserID, "project": projectID}).
		Infof("Event ID: INTERVIEWS_REQUESTED, Description: %d interview invitations created", created)

	st.mu.Lock()
	defer st.mu.Unlock()
	return created, s.viewLocked(st), nil
}

// Select выбирает исполнителя. Для quick-назначения предложение при
// необходимости сначала переводится в under_review, затем отправляется
// приглашение, и мастер переходит на этап ожидания ответа. Для остальных
// типов выбор возможен только на последнем этапе.
func (s *AssignmentService) Select(ctx context.Context, caller models.Caller, projectID, bidID string, req models.InvitationRequest) (*models.AssignmentView, error) {
	st, _, err := s.state(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	err = s.Bids.Exclusive(bidID, func() error {
		st.mu.Lock()
		bid, ok := st.board.ConfirmedBid(bidID)
		if !ok {
			st.mu.Unlock()
			return errBidNotFound(bidID)
		}
		if st.project.IsAssigned() {
			st.mu.Unlock()
			return assignment.ErrAlreadyAssigned
		}
		tier, step, project := st.wizard.Tier(), st.wizard.CurrentKey(), st.project
		st.mu.Unlock()

		hours := req.ExpiresInHours
		if hours <= 0 {
			hours = int(assignment.DecisionWindow(tier) / time.Hour)
		}
		extra := map[string]interface{}{"message": req.Message, "expires_in_hours": hours}

		if tier == models.QuickTier {
			if step != models.ReviewStep {
				return &assignment.StepError{Step: step, Warning: "an invitation has already been sent"}
			}
			if bid.State == models.SubmittedBid {
				if err := s.Bids.Perform(ctx, caller, project, bid, models.MarkUnderReview, nil); err != nil {
					return err
				}
				bid.State = models.UnderReviewBid
				st.board.Confirm(bid.ID, bid.State)
			}
		} else if step != models.FinalStep {
			return &assignment.StepError{Step: step, Warning: "complete the previous steps before selecting a freelancer"}
		}

		if err := s.Bids.Perform(ctx, caller, project, bid, models.SendAssignmentInvitation, extra); err != nil {
			return err
		}

		st.mu.Lock()
		if tier == models.QuickTier {
			st.wizard.AdvanceTo(models.InvitationStep)
		}
		s.persistLocked(ctx, st)
		st.mu.Unlock()

		s.settle(ctx, caller, st, bid.ID, "", func() {})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user": caller.UserID, "project": projectID, "bid": bidID}).
		Info("Event ID: ASSIGNMENT_INVITATION_SENT, Description: freelancer invited")

	st.mu.Lock()
	defer st.mu.Unlock()
	return s.viewLocked(st), nil
}

// targetState - состояние предложения после успешного действия.
func targetState(action models.BidAction) (models.BidState, bool) {
	switch action {
	case models.MarkUnderReview:
		return models.UnderReviewBid, true
	case models.Negotiate:
		return models.NegotiationBid, true
	case models.Reject:
		return models.RejectedBid, true
	case models.Accept:
		return models.AcceptedBid, true
	default:
		return "", false
	}
}

// DispatchAction выполняет действие над предложением из списка проекта.
func (s *AssignmentService) DispatchAction(ctx context.Context, caller models.Caller, projectID, bidID string, req models.BidActionRequest) (*models.AssignmentView, error) {
	st, _, err := s.state(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}

	target, changes := targetState(req.Action)
	lookup := func() (models.Project, models.Bid, error) {
		st.mu.Lock()
		defer st.mu.Unlock()
		bid, ok := st.board.ConfirmedBid(bidID)
		if !ok {
			return models.Project{}, models.Bid{}, errBidNotFound(bidID)
		}
		return st.project, bid, nil
	}
	err = s.Bids.Dispatch(ctx, caller, bidID, req.Action, req.Extra, lookup, Optimistic{
		Apply: func(models.Bid) func() {
			if !changes {
				return func() {}
			}
			return st.board.Apply(bidID, target)
		},
		Settle: func(rollback func()) {
			s.settle(ctx, caller, st, bidID, target, rollback)
		},
	})
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return s.viewLocked(st), nil
}

// HandleEvent применяет событие о закреплении исполнителя ко всем открытым
// мастерам проекта.
func (s *AssignmentService) HandleEvent(ev models.AssignmentEvent) {
	if len(ev.AssignedFreelancers) == 0 {
		return
	}

	s.mu.Lock()
	var states []*projectState
	for _, st := range s.states {
		if st.projectID == ev.ProjectID {
			states = append(states, st)
		}
	}
	s.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		st.project.AssignedFreelancers = ev.AssignedFreelancers
		if st.wizard.ObserveAssignment(ev.AssignedFreelancers, st.board.Confirmed()) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.persistLocked(ctx, st)
			cancel()
			s.logger.WithFields(logrus.Fields{"user": st.caller.UserID, "project": st.projectID}).
				Info("Event ID: ASSIGNMENT_OBSERVED, Description: project assigned, wizard moved to the last step")
		}
		st.mu.Unlock()
	}
}

// Tracked возвращает открытые мастера по проектам, которые еще не закреплены.
func (s *AssignmentService) Tracked() []TrackedProject {
	s.mu.Lock()
	states := make([]*projectState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	s.mu.Unlock()

	var tracked []TrackedProject
	for _, st := range states {
		st.mu.Lock()
		if !st.project.IsAssigned() {
			tracked = append(tracked, TrackedProject{Caller: st.caller, ProjectID: st.projectID})
		}
		st.mu.Unlock()
	}
	return tracked
}

// EvictIdle выгружает мастера, к которым не обращались дольше IdleTTL, и
// возвращает их количество. Сессии закрепленных проектов удаляются из базы:
// при следующем открытии мастер все равно встанет на последний этап.
func (s *AssignmentService) EvictIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.IdleTTL)

	s.mu.Lock()
	var evicted []*projectState
	for key, st := range s.states {
		if st.lastUsed.Before(cutoff) {
			delete(s.states, key)
			evicted = append(evicted, st)
		}
	}
	s.mu.Unlock()

	for _, st := range evicted {
		st.mu.Lock()
		assigned := st.project.IsAssigned()
		userID := st.caller.UserID
		st.mu.Unlock()
		if !assigned {
			continue
		}
		if err := s.Sessions.DeleteSession(ctx, userID, st.projectID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.WithFields(logrus.Fields{"user": userID, "project": st.projectID}).
				Warnf("Event ID: SESSION_DELETE_FAILED, Description: %v", err)
		}
	}
	if len(evicted) > 0 {
		s.logger.Infof("Event ID: ASSIGNMENTS_EVICTED, Description: %d idle assignment wizards unloaded", len(evicted))
	}
	return len(evicted)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
