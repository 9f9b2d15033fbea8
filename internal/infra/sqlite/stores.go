package sqlite

import "github.com/habitloop/habitloop/internal/domain"

// DB implements every domain store interface. A transaction-scoped DB from
// Transact satisfies them too, so multi-step operations stay atomic.
var (
	_ domain.ActivityStore  = (*DB)(nil)
	_ domain.BaselineStore  = (*DB)(nil)
	_ domain.RatingStore    = (*DB)(nil)
	_ domain.ChallengeStore = (*DB)(nil)
	_ domain.LifecycleStore = (*DB)(nil)
	_ domain.StreakStore    = (*DB)(nil)
	_ domain.RewardStore    = (*DB)(nil)
)
