package rating

import (
	"fmt"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// trendWindowMonths is the trailing window used for trend analysis.
const trendWindowMonths = 3

// Report builds the analysis snapshot over the four core categories:
// overall mean, strongest/weakest category, and the trailing-three-month
// trend from success vs double_failure counts.
func (s *Service) Report(now time.Time) (domain.RatingReport, error) {
	report := domain.RatingReport{Ratings: make(map[domain.Category]int)}

	var sum int
	for _, c := range domain.CoreCategories() {
		r, err := s.db.GetRating(c)
		if err != nil {
			return report, fmt.Errorf("get rating %s: %w", c, err)
		}
		report.Ratings[c] = r.Rating
		sum += r.Rating
	}
	report.Overall = float64(sum) / float64(len(domain.CoreCategories()))

	// Argmax/argmin with the category order as deterministic tie-break.
	best, worst := -1, domain.MaxRating+1
	for _, c := range domain.CoreCategories() {
		r := report.Ratings[c]
		if r > best {
			best = r
			report.Strongest = c
		}
		if r < worst {
			worst = r
			report.Weakest = c
		}
	}

	since := now.AddDate(0, -trendWindowMonths, 0).Format(domain.MonthFormat)
	events, err := s.db.ListRatingEvents(since)
	if err != nil {
		return report, fmt.Errorf("list rating events: %w", err)
	}

	var successes, demotions int
	for _, e := range events {
		switch e.Reason {
		case domain.ReasonSuccess:
			successes++
		case domain.ReasonDoubleFailure:
			demotions++
		}
	}
	switch {
	case successes > demotions:
		report.Trend = domain.TrendImproving
	case demotions > successes:
		report.Trend = domain.TrendDeclining
	default:
		report.Trend = domain.TrendStable
	}

	balance, err := s.db.XPBalance()
	if err != nil {
		return report, fmt.Errorf("xp balance: %w", err)
	}
	report.LifetimeXP = balance

	return report, nil
}
