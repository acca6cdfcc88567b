package assignment

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/senyabanana/assignment-desk/internal/models"
)

func TestProjectValue(t *testing.T) {
	tests := []struct {
		name    string
		project models.Project
		want    float64
	}{
		{"fixed uses budget", models.Project{PricingStrategy: models.FixedPricing, Budget: 1200, HourlyRate: 10, EstimatedHours: 10}, 1200},
		{"hourly multiplies", models.Project{PricingStrategy: models.HourlyPricing, HourlyRate: 25, EstimatedHours: 40}, 1000},
		{"unknown is zero", models.Project{Budget: 5000}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProjectValue(tt.project); got != tt.want {
				t.Errorf("ProjectValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTierByValueBoundaries(t *testing.T) {
	tests := []struct {
		value float64
		want  models.Tier
	}{
		{0, models.QuickTier},
		{499.99, models.QuickTier},
		{500, models.StandardTier},
		{1500, models.StandardTier},
		{2000, models.StandardTier},
		{2000.01, models.PremiumTier},
		{1e9, models.PremiumTier},
	}
	for _, tt := range tests {
		if got := TierByValue(tt.value); got != tt.want {
			t.Errorf("TierByValue(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestTierByValueIsTotal(t *testing.T) {
	for v := 0.0; v <= 5000; v += 0.5 {
		switch TierByValue(v) {
		case models.QuickTier, models.StandardTier, models.PremiumTier:
		default:
			t.Fatalf("TierByValue(%v) returned unknown tier", v)
		}
	}
}

func TestTierByComplexity(t *testing.T) {
	want := map[models.ComplexityLevel]models.Tier{
		models.EntryLevel:        models.QuickTier,
		models.IntermediateLevel: models.StandardTier,
		models.AdvancedLevel:     models.PremiumTier,
		"":                       models.QuickTier,
	}
	for level, tier := range want {
		if got := TierByComplexity(level); got != tier {
			t.Errorf("TierByComplexity(%q) = %s, want %s", level, got, tier)
		}
	}
}

func TestRecommendMarksExactlyOne(t *testing.T) {
	p := models.Project{PricingStrategy: models.HourlyPricing, HourlyRate: 50, EstimatedHours: 60}
	rec := Recommend(p)

	if rec.ProjectValue != 3000 || rec.Recommended != models.PremiumTier {
		t.Fatalf("unexpected recommendation %+v", rec)
	}
	var marked []models.Tier
	for _, d := range rec.Definitions {
		if d.Recommended {
			marked = append(marked, d.Tier)
		}
	}
	if diff := cmp.Diff([]models.Tier{models.PremiumTier}, marked); diff != "" {
		t.Errorf("recommended tiers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(StepsFor(models.PremiumTier), rec.Definitions[2].Steps); diff != "" {
		t.Errorf("premium steps mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePrefersOverride(t *testing.T) {
	p := models.Project{PricingStrategy: models.FixedPricing, Budget: 100}
	if got := Resolve(p, ""); got != models.QuickTier {
		t.Errorf("Resolve without override = %s", got)
	}
	if got := Resolve(p, models.PremiumTier); got != models.PremiumTier {
		t.Errorf("Resolve with override = %s", got)
	}
	if got := Resolve(p, "gold"); got != models.QuickTier {
		t.Errorf("Resolve with bogus override = %s", got)
	}
}

func TestTimeRemaining(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(90 * time.Minute)
	past := now.Add(-time.Hour)

	if got := TimeRemaining(models.Project{Deadline: &deadline}, now); got != 90*time.Minute {
		t.Errorf("TimeRemaining() = %v", got)
	}
	if got := TimeRemaining(models.Project{Deadline: &past}, now); got != 0 {
		t.Errorf("TimeRemaining() after deadline = %v", got)
	}
	if got := TimeRemaining(models.Project{}, now); got != 0 {
		t.Errorf("TimeRemaining() without deadline = %v", got)
	}
}
