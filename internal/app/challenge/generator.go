package challenge

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/habitloop/habitloop/internal/app/baseline"
	"github.com/habitloop/habitloop/internal/app/rating"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/metrics"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// recentTemplateWindow is how many past challenges count as "recently used"
// when excluding templates.
const recentTemplateWindow = 6

// Generator builds monthly challenges from the baseline and star ratings.
type Generator struct {
	db      *sqlite.DB
	agg     *baseline.Aggregator
	cfg     rating.Config
	catalog []domain.ChallengeTemplate
	now     func() time.Time
}

// NewGenerator creates a generator over the static catalog.
func NewGenerator(db *sqlite.DB, agg *baseline.Aggregator, cfg rating.Config) *Generator {
	return &Generator{db: db, agg: agg, cfg: cfg, catalog: Catalog(), now: time.Now}
}

// Validate checks that each tracked feature carries minimum signal in the
// baseline window. The caller decides whether to proceed with a fallback
// challenge when invalid.
func Validate(b *domain.UserActivityBaseline) domain.ValidationResult {
	if b == nil {
		return domain.ValidationResult{
			IsValid:        false,
			MissingMetrics: []string{string(domain.CategoryHabits), string(domain.CategoryJournal), string(domain.CategoryGoals)},
			Advisory:       "no baseline available — targets will use template fallback constants",
		}
	}

	var missing []string
	if b.HabitActiveDays == 0 {
		missing = append(missing, string(domain.CategoryHabits))
	}
	if b.JournalActiveDays == 0 {
		missing = append(missing, string(domain.CategoryJournal))
	}
	if b.GoalActiveDays == 0 {
		missing = append(missing, string(domain.CategoryGoals))
	}

	if len(missing) > 0 {
		return domain.ValidationResult{
			IsValid:        false,
			MissingMetrics: missing,
			Advisory:       "some features have no recent activity — their targets will use fallback constants",
		}
	}
	return domain.ValidationResult{IsValid: true}
}

// Generate creates the challenge for a month. Idempotent: when the month
// already has a challenge it is returned unchanged with zero elapsed time
// and an "already exists" warning — no duplicate is created. All writes
// commit atomically or not at all.
func (g *Generator) Generate(ctx context.Context, month string) (domain.GenerationResult, error) {
	start := g.now()

	existing, err := g.db.ChallengeForMonth(month)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("check existing challenge: %w", err)
	}
	if existing != nil {
		return domain.GenerationResult{
			Success:   true,
			Challenge: existing,
			Warnings:  []string{fmt.Sprintf("challenge already exists for %s", month)},
			Elapsed:   0,
		}, nil
	}

	var warnings []string

	// Baseline failures are soft: generation falls back to template
	// constants rather than failing the month.
	var base *domain.UserActivityBaseline
	if b, err := g.agg.BaselineFor(start); err != nil {
		warnings = append(warnings, fmt.Sprintf("baseline unavailable (%v) — using fallback targets", err))
	} else {
		base = &b
	}

	if vr := Validate(base); !vr.IsValid {
		warnings = append(warnings, vr.Advisory)
	}

	ratings := make(map[domain.Category]int, len(domain.CoreCategories()))
	for _, c := range domain.CoreCategories() {
		r, err := g.db.GetRating(c)
		if err != nil {
			return domain.GenerationResult{}, fmt.Errorf("get rating %s: %w", c, err)
		}
		ratings[c] = r.Rating
	}

	last, haveLast, err := g.db.LastChallengeCategory()
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("last challenge category: %w", err)
	}

	firstMonth := base == nil || base.IsFirstMonth

	var tmpl domain.ChallengeTemplate
	var level, xp int
	if firstMonth {
		// First-month override: level 1, the special template, and a
		// fixed reduced XP reward instead of the table value.
		tmpl, err = FirstMonthTemplate(g.catalog, domain.CategoryHabits)
		if err != nil {
			return domain.GenerationResult{}, err
		}
		level = domain.MinRating
		xp = g.cfg.FirstMonthXP
		warnings = append(warnings, "first month — using reduced warm-up difficulty")
	} else {
		category := SelectCategory(ratings, base, last, haveLast)
		recent, err := g.db.RecentTemplateIDs(recentTemplateWindow)
		if err != nil {
			return domain.GenerationResult{}, fmt.Errorf("recent template ids: %w", err)
		}
		tmpl, err = SelectTemplate(g.catalog, category, base, ratings[category], recent)
		if err != nil {
			// Empty per-category catalog is a configuration error and
			// propagates, never a silent no-op.
			return domain.GenerationResult{}, err
		}
		level = rating.ClampLevel(ratings[category])
		xp = g.cfg.XPReward(level)
	}

	target, method := g.target(tmpl, base, level)
	if method == domain.MethodFallback {
		warnings = append(warnings, fmt.Sprintf("metric %q has no signal — using fallback target %d", tmpl.BaselineMetric, tmpl.FallbackTarget))
	}

	ch := domain.MonthlyChallenge{
		ID:           uuid.NewString(),
		Month:        month,
		Category:     tmpl.Category,
		TemplateID:   tmpl.ID,
		Title:        tmpl.Title,
		StarLevel:    level,
		XPReward:     xp,
		Status:       domain.ChallengeActive,
		TargetMethod: method,
		Requirements: buildRequirements(tmpl, target),
		Baseline:     base, // Frozen at generation time, never re-derived
		CreatedAt:    start,
	}

	err = g.db.Transact(ctx, func(tx *sqlite.DB) error {
		if base != nil {
			if err := tx.SaveBaseline(month, *base); err != nil {
				return fmt.Errorf("save baseline: %w", err)
			}
		}
		if err := tx.InsertChallenge(ch); err != nil {
			return fmt.Errorf("insert challenge: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.GenerationResult{}, err
	}

	elapsed := g.now().Sub(start)
	metrics.ChallengesGenerated.WithLabelValues(string(ch.Category), string(method)).Inc()
	metrics.GenerationLatency.Observe(elapsed.Seconds())

	return domain.GenerationResult{
		Success:   true,
		Challenge: &ch,
		Warnings:  warnings,
		Elapsed:   elapsed,
	}, nil
}

// target derives the requirement target and reports which method produced
// it: the scaled baseline metric, the template fallback constant, or the
// declared minimum clamp.
func (g *Generator) target(tmpl domain.ChallengeTemplate, b *domain.UserActivityBaseline, level int) (int, domain.TargetMethod) {
	var metric float64
	var ok bool
	if b != nil {
		metric, ok = b.Metric(tmpl.BaselineMetric)
	}

	var target int
	method := domain.MethodBaseline
	if !ok || metric <= 0 {
		target = tmpl.FallbackTarget
		method = domain.MethodFallback
	} else {
		target = g.cfg.ApplyStarScaling(metric, level)
	}

	if target < tmpl.MinTarget {
		target = tmpl.MinTarget
		method = domain.MethodMinimum
	}
	return target, method
}

// buildRequirements creates the requirement set: the monthly total, plus a
// weekly sub-target when the template declares one.
func buildRequirements(tmpl domain.ChallengeTemplate, target int) []domain.ChallengeRequirement {
	reqs := []domain.ChallengeRequirement{{
		Type:            domain.RequirementTotal,
		TrackingKey:     tmpl.TrackingKey,
		Target:          target,
		Milestones:      tmpl.Milestones,
		MilestonesFired: make([]bool, len(tmpl.Milestones)),
	}}

	if tmpl.WeeklyTarget {
		weekly := int(math.Ceil(float64(target) / 4))
		if weekly < 1 {
			weekly = 1
		}
		reqs = append(reqs, domain.ChallengeRequirement{
			Type:        domain.RequirementWeekly,
			TrackingKey: tmpl.TrackingKey,
			Target:      weekly,
		})
	}
	return reqs
}
