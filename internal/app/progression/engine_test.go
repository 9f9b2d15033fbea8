package progression_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/habitloop/habitloop/internal/app/challenge"
	"github.com/habitloop/habitloop/internal/app/progression"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

func testEngine(t *testing.T) *progression.Engine {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return progression.New(db, progression.DefaultConfig())
}

// TestMonthCycle drives a full month end to end: start, daily activity,
// completion, close, award.
func TestMonthCycle(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	now := time.Now()
	month := now.Format(domain.MonthFormat)
	today := now.Format(domain.DayFormat)

	// A brand-new database starts in first-month mode.
	res, err := e.StartMonth(ctx, month)
	if err != nil {
		t.Fatalf("start month: %v", err)
	}
	if res.Challenge.TemplateID != challenge.FirstMonthTemplateID {
		t.Errorf("template = %s, want first-month special", res.Challenge.TemplateID)
	}
	if res.Challenge.XPReward != 400 {
		t.Errorf("xp = %d, want reduced 400", res.Challenge.XPReward)
	}

	state, err := e.Lifecycle.Ensure(ctx, month)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if state.Phase != domain.PhaseActive {
		t.Errorf("phase = %s, want active", state.Phase)
	}
	if state.CurrentChallengeID != res.Challenge.ID {
		t.Errorf("lifecycle challenge id = %s, want %s", state.CurrentChallengeID, res.Challenge.ID)
	}

	// Re-running the boundary work is harmless.
	again, err := e.StartMonth(ctx, month)
	if err != nil {
		t.Fatalf("restart month: %v", err)
	}
	if again.Challenge.ID != res.Challenge.ID {
		t.Error("restart generated a second challenge")
	}

	// One heavy day clears the fallback target and the streak threshold.
	err = e.RecordActivity(ctx, domain.DailyActivityRecord{
		Day:              today,
		HabitCompletions: 25,
		JournalEntries:   3,
	})
	if err != nil {
		t.Fatalf("record activity: %v", err)
	}

	snap, err := e.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Challenge == nil {
		t.Fatal("snapshot missing challenge")
	}
	if snap.Challenge.Status != domain.ChallengeCompleted {
		t.Errorf("status = %s, want completed after heavy day", snap.Challenge.Status)
	}
	if snap.Streak.CurrentStreak != 1 {
		t.Errorf("streak = %d, want 1", snap.Streak.CurrentStreak)
	}

	ch, err := e.CloseMonth(ctx, month)
	if err != nil {
		t.Fatalf("close month: %v", err)
	}
	if ch.Status != domain.ChallengeCompleted {
		t.Errorf("closed status = %s, want completed", ch.Status)
	}

	// First-month outcome awards XP but never moves the star rating.
	balance, err := e.Rewards.Lifetime()
	if err != nil {
		t.Fatalf("lifetime: %v", err)
	}
	if balance != 400 {
		t.Errorf("balance = %d, want 400", balance)
	}
	r, err := e.Ratings.Rating(ch.Category)
	if err != nil {
		t.Fatalf("rating: %v", err)
	}
	if r.Rating != domain.MinRating {
		t.Errorf("rating = %d, want untouched %d", r.Rating, domain.MinRating)
	}

	state, err = e.Lifecycle.Ensure(ctx, month)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if state.Phase != domain.PhaseAwaitingMonth {
		t.Errorf("phase = %s, want awaiting month start", state.Phase)
	}

	// The month is closed; there is nothing left to close.
	if _, err := e.CloseMonth(ctx, month); !errors.Is(err, domain.ErrMonthClosed) {
		t.Errorf("expected ErrMonthClosed on a second close, got %v", err)
	}
}

func TestCloseMonth_ExpiresUntouchedChallenge(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	month := time.Now().Format(domain.MonthFormat)

	if _, err := e.StartMonth(ctx, month); err != nil {
		t.Fatalf("start month: %v", err)
	}

	ch, err := e.CloseMonth(ctx, month)
	if err != nil {
		t.Fatalf("close month: %v", err)
	}
	if ch.Status != domain.ChallengeExpired {
		t.Errorf("status = %s, want expired with zero progress", ch.Status)
	}
	if balance, _ := e.Rewards.Lifetime(); balance != 0 {
		t.Errorf("balance = %d, want no award", balance)
	}
}

func TestPreviewNext(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	now := time.Now()
	month := now.Format(domain.MonthFormat)

	if _, err := e.StartMonth(ctx, month); err != nil {
		t.Fatalf("start month: %v", err)
	}

	res, err := e.PreviewNext(ctx, month)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	first, _ := time.Parse(domain.MonthFormat, month)
	next := first.AddDate(0, 1, 0).Format(domain.MonthFormat)
	if res.Challenge.Month != next {
		t.Errorf("preview month = %s, want %s", res.Challenge.Month, next)
	}

	state, err := e.Lifecycle.Ensure(ctx, month)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if state.PreviewChallengeID != res.Challenge.ID {
		t.Errorf("preview id = %s, want %s", state.PreviewChallengeID, res.Challenge.ID)
	}
	if state.Phase != domain.PhasePreview {
		t.Errorf("phase = %s, want preview once the next challenge is recorded", state.Phase)
	}

	// Re-running the preview is harmless.
	if _, err := e.PreviewNext(ctx, month); err != nil {
		t.Fatalf("re-preview: %v", err)
	}
}

// TestPreviewHandover walks the boundary out of a previewed month: the close
// hands over through the transitioning phase and the next month's start
// promotes the recorded preview instead of generating a new challenge.
func TestPreviewHandover(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	month := time.Now().Format(domain.MonthFormat)

	if _, err := e.StartMonth(ctx, month); err != nil {
		t.Fatalf("start month: %v", err)
	}
	res, err := e.PreviewNext(ctx, month)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	if _, err := e.CloseMonth(ctx, month); err != nil {
		t.Fatalf("close month: %v", err)
	}
	state, err := e.Lifecycle.Ensure(ctx, month)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if state.Phase != domain.PhaseAwaitingMonth {
		t.Errorf("phase = %s, want awaiting month start", state.Phase)
	}

	history, err := e.Lifecycle.History(month)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var phases []domain.Phase
	for _, tr := range history {
		phases = append(phases, tr.To)
	}
	want := []domain.Phase{
		domain.PhaseActive,
		domain.PhasePreview,
		domain.PhaseTransitioning,
		domain.PhaseActive,
		domain.PhaseCompleted,
		domain.PhaseAwaitingMonth,
	}
	if len(phases) != len(want) {
		t.Fatalf("transition log = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("transition log = %v, want %v", phases, want)
		}
	}

	next := res.Challenge.Month
	started, err := e.StartMonth(ctx, next)
	if err != nil {
		t.Fatalf("start next month: %v", err)
	}
	if started.Challenge.ID != res.Challenge.ID {
		t.Errorf("next month challenge = %s, want promoted preview %s", started.Challenge.ID, res.Challenge.ID)
	}
	nextState, err := e.Lifecycle.Ensure(ctx, next)
	if err != nil {
		t.Fatalf("ensure next: %v", err)
	}
	if nextState.Phase != domain.PhaseActive {
		t.Errorf("next month phase = %s, want active", nextState.Phase)
	}
	if nextState.CurrentChallengeID != res.Challenge.ID {
		t.Errorf("next month challenge id = %s, want %s", nextState.CurrentChallengeID, res.Challenge.ID)
	}
}

func TestRecordActivity_RejectsBadDay(t *testing.T) {
	e := testEngine(t)
	err := e.RecordActivity(context.Background(), domain.DailyActivityRecord{Day: "not-a-day"})
	if err == nil {
		t.Error("expected malformed day to be rejected")
	}
}
