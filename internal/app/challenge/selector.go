package challenge

import (
	"fmt"
	"sort"

	"github.com/habitloop/habitloop/internal/domain"
)

// Category-selection weights. The formula is deliberately simple and
// monotonic: categories the user is strong in (high baseline share) and
// rated low (due for easier treatment) score higher; the immediately-prior
// category is penalized so months vary.
const (
	weightShare          = 2.0
	weightVarietyPenalty = 3.0
)

// SelectCategory picks which core category receives this month's challenge.
// Deterministic: ties break by the stable category order. When an
// alternative exists, the immediately-prior category is never repeated.
func SelectCategory(ratings map[domain.Category]int, b *domain.UserActivityBaseline, last domain.Category, haveLast bool) domain.Category {
	core := domain.CoreCategories()

	best := core[0]
	bestWeight := -1.0
	for _, c := range core {
		w := categoryWeight(c, ratings, b)
		if haveLast && c == last {
			w -= weightVarietyPenalty
		}
		// Strictly-greater keeps the earlier category on ties.
		if w > bestWeight {
			best = c
			bestWeight = w
		}
	}

	// Variety enforcement: with four core categories there is always an
	// alternative, so the prior category only wins if the penalty is
	// overcome — which the hard check below still rejects.
	if haveLast && best == last {
		bestWeight = -1.0
		for _, c := range core {
			if c == last {
				continue
			}
			if w := categoryWeight(c, ratings, b); w > bestWeight {
				best = c
				bestWeight = w
			}
		}
	}

	return best
}

func categoryWeight(c domain.Category, ratings map[domain.Category]int, b *domain.UserActivityBaseline) float64 {
	// Inverse rating: lower-rated categories are due for easier treatment.
	w := float64(domain.MaxRating + 1 - clampRating(ratings[c]))
	if b != nil {
		w += weightShare * b.CategoryShare(c)
	}
	return w
}

func clampRating(r int) int {
	if r < domain.MinRating {
		return domain.MinRating
	}
	if r > domain.MaxRating {
		return domain.MaxRating
	}
	return r
}

// SelectTemplate chooses a template for the category. Filters: minLevel ≤
// rating, recently-used exclusion (unless nothing else remains), preferred
// data-quality tier, then catalog priority with the template id as the
// final deterministic tie-break. An empty per-category catalog is a
// configuration error.
func SelectTemplate(catalog []domain.ChallengeTemplate, category domain.Category, b *domain.UserActivityBaseline, currentRating int, recentIDs []string) (domain.ChallengeTemplate, error) {
	var pool []domain.ChallengeTemplate
	for _, t := range catalog {
		if t.Category == category && !t.FirstMonth {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 {
		return domain.ChallengeTemplate{}, fmt.Errorf("%w: %s", domain.ErrEmptyCatalog, category)
	}

	// Level filter. If the rating excludes every template the full pool
	// stays eligible — a level mismatch must never leave the month empty.
	leveled := filter(pool, func(t domain.ChallengeTemplate) bool {
		return t.MinLevel <= clampRating(currentRating)
	})
	if len(leveled) > 0 {
		pool = leveled
	}

	// Exclude recently used templates unless no alternative remains.
	recent := make(map[string]bool, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = true
	}
	fresh := filter(pool, func(t domain.ChallengeTemplate) bool { return !recent[t.ID] })
	if len(fresh) > 0 {
		pool = fresh
	}

	// Prefer templates matching the window's data quality.
	if b != nil {
		matching := filter(pool, func(t domain.ChallengeTemplate) bool {
			if len(t.Quality) == 0 {
				return true
			}
			for _, q := range t.Quality {
				if q == b.DataQuality {
					return true
				}
			}
			return false
		})
		if len(matching) > 0 {
			pool = matching
		}
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].Priority != pool[j].Priority {
			return pool[i].Priority < pool[j].Priority
		}
		return pool[i].ID < pool[j].ID
	})
	return pool[0], nil
}

// FirstMonthTemplate returns the first-month special template if the
// catalog carries one; otherwise the lowest-level template for the
// category is used as a stand-in.
func FirstMonthTemplate(catalog []domain.ChallengeTemplate, category domain.Category) (domain.ChallengeTemplate, error) {
	for _, t := range catalog {
		if t.FirstMonth {
			return t, nil
		}
	}
	return SelectTemplate(catalog, category, nil, domain.MinRating, nil)
}

func filter(in []domain.ChallengeTemplate, keep func(domain.ChallengeTemplate) bool) []domain.ChallengeTemplate {
	var out []domain.ChallengeTemplate
	for _, t := range in {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
