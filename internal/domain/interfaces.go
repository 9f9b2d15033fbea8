package domain

// ─── Store Interfaces ───────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ActivityStore abstracts the daily activity log written by upstream
// features and read by the aggregator and streak calculator.
type ActivityStore interface {
	UpsertDailyActivity(rec DailyActivityRecord) error
	GetDailyActivity(day string) (*DailyActivityRecord, error)
	ListDailyActivity(from, to string) ([]DailyActivityRecord, error)
}

// BaselineStore persists immutable baseline snapshots keyed by month.
type BaselineStore interface {
	SaveBaseline(month string, b UserActivityBaseline) error
	GetBaseline(month string) (*UserActivityBaseline, error)
	HasAnyBaseline() (bool, error)
}

// RatingStore persists per-category star ratings and their append-only
// change history.
type RatingStore interface {
	GetRating(c Category) (CategoryStarRating, error)
	PutRating(r CategoryStarRating) error
	AppendRatingEvent(e RatingChangeEvent) error
	ListRatingEvents(sinceMonth string) ([]RatingChangeEvent, error)
	TrimRatingHistory(beforeMonth string) (int64, error)
}

// ChallengeStore persists monthly challenges.
type ChallengeStore interface {
	InsertChallenge(c MonthlyChallenge) error
	GetChallenge(id string) (*MonthlyChallenge, error)
	ChallengeForMonth(month string) (*MonthlyChallenge, error)
	UpdateChallenge(c MonthlyChallenge) error
	RecentTemplateIDs(limit int) ([]string, error)
	LastChallengeCategory() (Category, bool, error)
}

// LifecycleStore persists the one-per-month lifecycle records plus their
// append-only transition history and bounded error log.
type LifecycleStore interface {
	GetLifecycle(month string) (*LifecycleState, error)
	PutLifecycle(s LifecycleState) error
	LatestLifecycleMonth() (string, bool, error)
	AppendTransition(t LifecycleTransition) error
	ListTransitions(month string) ([]LifecycleTransition, error)
	TrimTransitions(month string, keep int) (int64, error)
	AppendLifecycleError(e LifecycleError) (int64, error)
	ResolveLifecycleError(id int64) error
	ListLifecycleErrors(month string) ([]LifecycleError, error)
	TrimLifecycleErrors(month string, keep int) (int64, error)
}

// StreakStore persists the singleton streak state and warm-up payments.
type StreakStore interface {
	GetStreak() (StreakState, error)
	PutStreak(s StreakState) error
	PutWarmUpPayment(p WarmUpPayment) error
	ListWarmUpPayments() ([]WarmUpPayment, error)
}

// RewardStore persists the append-only XP ledger.
type RewardStore interface {
	AppendXP(e XPEntry) (int64, error)
	XPBalance() (int, error)
	HasXPForChallenge(challengeID string) (bool, error)
	ListXP(limit int) ([]XPEntry, error)
}
