package models

import "time"

type (
	PricingStrategy string // Способ оплаты проекта
	ComplexityLevel string // Сложность проекта
)

const (
	FixedPricing  PricingStrategy = "fixed"
	HourlyPricing PricingStrategy = "hourly"

	EntryLevel        ComplexityLevel = "entry"
	IntermediateLevel ComplexityLevel = "intermediate"
	AdvancedLevel     ComplexityLevel = "advanced"
)

// AssignedFreelancer - фрилансер, за которым закреплен проект.
type AssignedFreelancer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Project представляет модель проекта клиента.
type Project struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Budget              float64              `json:"budget"`
	PricingStrategy     PricingStrategy      `json:"pricing_strategy"`
	HourlyRate          float64              `json:"hourly_rate"`
	EstimatedHours      float64              `json:"estimated_hours"`
	ComplexityLevel     ComplexityLevel      `json:"complexity_level"`
	Deadline            *time.Time           `json:"deadline,omitempty"`
	AssignedFreelancers []AssignedFreelancer `json:"assigned_freelancers"`
	Status              string               `json:"status"`
}

// IsAssigned сообщает, что бэкенд уже закрепил исполнителя.
func (p Project) IsAssigned() bool {
	return len(p.AssignedFreelancers) > 0
}
