package services

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/senyabanana/assignment-desk/internal/assignment"
	"github.com/senyabanana/assignment-desk/internal/marketplace"
	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/utils"
)

// BidService выполняет действия клиента над предложениями.
type BidService struct {
	Market Marketplace
	locks  *utils.InFlight
	logger *logrus.Logger
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(market Marketplace, logger *logrus.Logger) *BidService {
	return &BidService{Market: market, locks: utils.NewInFlight(), logger: logger}
}

// Exclusive выполняет fn, пока предложение занято. Если над предложением уже
// выполняется действие, сразу возвращает ErrActionInFlight.
func (s *BidService) Exclusive(bidID string, fn func() error) error {
	if !s.locks.TryAcquire(bidID) {
		return assignment.ErrActionInFlight
	}
	defer s.locks.Release(bidID)
	return fn()
}

// ExclusiveAll работает как Exclusive для нескольких предложений сразу.
func (s *BidService) ExclusiveAll(bidIDs []string, fn func() error) error {
	acquired := make([]string, 0, len(bidIDs))
	defer func() {
		for _, id := range acquired {
			s.locks.Release(id)
		}
	}()
	for _, id := range bidIDs {
		if !s.locks.TryAcquire(id) {
			return assignment.ErrActionInFlight
		}
		acquired = append(acquired, id)
	}
	return fn()
}

// BidLookup возвращает проект и подтвержденное состояние предложения.
type BidLookup func() (models.Project, models.Bid, error)

// Optimistic - оптимистичное изменение списка вокруг вызова бэкенда.
// Apply возвращает откат; при ошибке бэкенда он вызывается сразу, после
// успеха передается в Settle.
type Optimistic struct {
	Apply  func(bid models.Bid) (rollback func())
	Settle func(rollback func())
}

// Dispatch занимает предложение, перечитывает его через lookup, проверяет
// действие и вызывает бэкенд. Запрещенное действие возвращает
// *assignment.ValidationError без сетевого вызова.
func (s *BidService) Dispatch(ctx context.Context, caller models.Caller, bidID string, action models.BidAction, extra map[string]interface{}, lookup BidLookup, opt Optimistic) error {
	return s.Exclusive(bidID, func() error {
		project, bid, err := lookup()
		if err != nil {
			return err
		}
		if err := assignment.CheckAction(project.ComplexityLevel, bid.State, action); err != nil {
			return err
		}

		rollback := func() {}
		if opt.Apply != nil {
			rollback = opt.Apply(bid)
		}
		if err := s.Perform(ctx, caller, project, bid, action, extra); err != nil {
			rollback()
			return err
		}
		if opt.Settle != nil {
			opt.Settle(rollback)
		} else {
			rollback()
		}
		return nil
	})
}

// Perform проверяет и выполняет действие. Вызывающий должен держать
// блокировку предложения (Exclusive).
func (s *BidService) Perform(ctx context.Context, caller models.Caller, project models.Project, bid models.Bid, action models.BidAction, extra map[string]interface{}) error {
	if err := assignment.CheckAction(project.ComplexityLevel, bid.State, action); err != nil {
		return err
	}

	logger := s.logger.WithFields(logrus.Fields{"project": project.ID, "bid": bid.ID, "action": action})

	var err error
	if action == models.SendAssignmentInvitation {
		err = s.Market.CreateAssignmentInvitation(ctx, caller, marketplace.AssignmentInvitation{
			BidID:          bid.ID,
			Message:        stringExtra(extra, "message"),
			ExpiresInHours: intExtra(extra, "expires_in_hours", defaultInvitationHours(project)),
		})
	} else {
		endpoint, ok := marketplace.EndpointFor(action)
		if !ok {
			return &assignment.ValidationError{Action: action, Reason: fmt.Sprintf("unknown action %q", action)}
		}
		err = s.Market.UpdateBid(ctx, caller, endpoint, marketplace.BidUpdate{
			BidID:             bid.ID,
			ProjectComplexity: project.ComplexityLevel,
			Extra:             extra,
		})
	}
	if err != nil {
		logger.Warnf("Event ID: BID_ACTION_FAILED, Description: %v", err)
		return err
	}
	logger.Info("Event ID: BID_ACTION_DONE, Description: bid action completed")
	return nil
}

// Unshortlist возвращает предложение из шорт-листа в состояние submitted.
// Вызывающий должен держать блокировку предложения.
func (s *BidService) Unshortlist(ctx context.Context, caller models.Caller, project models.Project, bid models.Bid) error {
	if bid.State != models.UnderReviewBid {
		return assignment.ErrNotShortlistable
	}
	err := s.Market.UpdateBid(ctx, caller, marketplace.MarkBidSubmitted, marketplace.BidUpdate{
		BidID:             bid.ID,
		ProjectComplexity: project.ComplexityLevel,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{"project": project.ID, "bid": bid.ID}).
			Warnf("Event ID: BID_UNSHORTLIST_FAILED, Description: %v", err)
	}
	return err
}

func defaultInvitationHours(project models.Project) int {
	return int(assignment.DecisionWindow(assignment.Resolve(project, "")).Hours())
}

func stringExtra(extra map[string]interface{}, key string) string {
	if v, ok := extra[key].(string); ok {
		return v
	}
	return ""
}

// intExtra читает целое из extra. Числа из JSON приходят как float64.
func intExtra(extra map[string]interface{}, key string, def int) int {
	switch v := extra[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 && v == math.Trunc(v) {
			return int(v)
		}
	}
	return def
}
