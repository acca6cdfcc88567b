// Package assignment содержит правила процесса назначения исполнителя:
// определение типа назначения, допустимые действия над предложениями
// и пошаговые мастера для каждого типа.
package assignment

import (
	"time"

	"github.com/senyabanana/assignment-desk/internal/models"
)

const (
	quickUpperBound    = 500.0
	standardUpperBound = 2000.0
)

type tierSpec struct {
	title          string
	valueRange     string
	decisionWindow time.Duration
	windowLabel    string
}

var tierSpecs = map[models.Tier]tierSpec{
	models.QuickTier:    {title: "Quick Assignment", valueRange: "< ₹500", decisionWindow: 24 * time.Hour, windowLabel: "24 hours"},
	models.StandardTier: {title: "Standard Assignment", valueRange: "₹500 - ₹2000", decisionWindow: 48 * time.Hour, windowLabel: "48 hours"},
	models.PremiumTier:  {title: "Premium Assignment", valueRange: "> ₹2000", decisionWindow: 72 * time.Hour, windowLabel: "72 hours"},
}

// ProjectValue вычисляет стоимость проекта: бюджет для фиксированной оплаты,
// ставка на часы для почасовой, иначе 0.
func ProjectValue(p models.Project) float64 {
	switch p.PricingStrategy {
	case models.FixedPricing:
		return p.Budget
	case models.HourlyPricing:
		return p.HourlyRate * p.EstimatedHours
	default:
		return 0
	}
}

// TierByValue определяет тип назначения по стоимости. Границы 500 и 2000
// относятся к standard.
func TierByValue(value float64) models.Tier {
	switch {
	case value < quickUpperBound:
		return models.QuickTier
	case value <= standardUpperBound:
		return models.StandardTier
	default:
		return models.PremiumTier
	}
}

// TierByComplexity определяет тип назначения по уровню сложности проекта.
// Неизвестный уровень трактуется как entry.
func TierByComplexity(level models.ComplexityLevel) models.Tier {
	switch level {
	case models.IntermediateLevel:
		return models.StandardTier
	case models.AdvancedLevel:
		return models.PremiumTier
	default:
		return models.QuickTier
	}
}

// Recommend возвращает три описания типов назначения, отмечая рекомендованный.
func Recommend(p models.Project) models.TierRecommendation {
	value := ProjectValue(p)
	recommended := TierByValue(value)

	defs := make([]models.TierDefinition, 0, len(models.Tiers))
	for _, t := range models.Tiers {
		spec := tierSpecs[t]
		defs = append(defs, models.TierDefinition{
			Tier:           t,
			Title:          spec.title,
			ValueRange:     spec.valueRange,
			DecisionWindow: spec.windowLabel,
			Steps:          StepsFor(t),
			Recommended:    t == recommended,
		})
	}

	return models.TierRecommendation{
		ProjectValue: value,
		Recommended:  recommended,
		Definitions:  defs,
	}
}

// Resolve выбирает тип назначения для показа: ручной выбор клиента имеет
// приоритет над рекомендацией.
func Resolve(p models.Project, override models.Tier) models.Tier {
	if _, ok := tierSpecs[override]; ok {
		return override
	}
	return TierByValue(ProjectValue(p))
}

// DecisionWindow возвращает срок действия приглашения для типа назначения.
func DecisionWindow(t models.Tier) time.Duration {
	return tierSpecs[t].decisionWindow
}

// TimeRemaining считает остаток времени до дедлайна проекта. Без дедлайна
// или после него возвращается 0.
func TimeRemaining(p models.Project, now time.Time) time.Duration {
	if p.Deadline == nil {
		return 0
	}
	left := p.Deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
