package services

import (
	"context"
	"net/http"
	"regexp"

	"github.com/senyabanana/assignment-desk/internal/models"
	"github.com/senyabanana/assignment-desk/internal/repository"
)

// ReferralBannerKey - ключ скрытия баннера реферальной программы.
const ReferralBannerKey = "referral_banner"

var dismissalKeyRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,63}$`)

// PreferenceService хранит скрытые пользователем баннеры и подсказки.
type PreferenceService struct {
	Repo   repository.PreferenceRepository
	Market Marketplace
}

// NewPreferenceService создает новый экземпляр PreferenceService.
func NewPreferenceService(repo repository.PreferenceRepository, market Marketplace) *PreferenceService {
	return &PreferenceService{Repo: repo, Market: market}
}

func checkKey(key string) error {
	if !dismissalKeyRe.MatchString(key) {
		return models.NewErrorResponse(http.StatusBadRequest, "invalid dismissal key")
	}
	return nil
}

// ListDismissals возвращает скрытые пользователем баннеры.
func (s *PreferenceService) ListDismissals(ctx context.Context, caller models.Caller) ([]models.Dismissal, error) {
	return s.Repo.ListDismissals(ctx, caller.UserID)
}

// Dismiss скрывает баннер.
func (s *PreferenceService) Dismiss(ctx context.Context, caller models.Caller, key string) (*models.Dismissal, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return s.Repo.Dismiss(ctx, caller.UserID, key)
}

// Restore снова показывает баннер.
func (s *PreferenceService) Restore(ctx context.Context, caller models.Caller, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return s.Repo.Restore(ctx, caller.UserID, key)
}

// ReferralSummary возвращает сводку реферальной программы с флагом скрытия баннера.
func (s *PreferenceService) ReferralSummary(ctx context.Context, caller models.Caller) (*models.ReferralSummary, error) {
	summary, err := s.Market.GetReferralSummary(ctx, caller)
	if err != nil {
		return nil, err
	}
	dismissed, err := s.Repo.IsDismissed(ctx, caller.UserID, ReferralBannerKey)
	if err != nil {
		return nil, err
	}
	summary.BannerDismissed = dismissed
	return &summary, nil
}
