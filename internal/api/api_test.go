package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/habitloop/habitloop/internal/api"
	"github.com/habitloop/habitloop/internal/app/progression"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	engine := progression.New(db, progression.DefaultConfig())
	ts := httptest.NewServer(api.NewServer(engine, "test").Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, ts *httptest.Server, path string, wantStatus int, out interface{}) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body interface{}, wantStatus int, out interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
}

func TestHealthAndVersion(t *testing.T) {
	ts := testServer(t)

	var health map[string]string
	getJSON(t, ts, "/health", http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Errorf("health = %q, want ok", health["status"])
	}

	var version map[string]string
	getJSON(t, ts, "/api/version", http.StatusOK, &version)
	if version["version"] != "test" {
		t.Errorf("version = %q, want test", version["version"])
	}
}

func TestChallenge_NotFoundBeforeGeneration(t *testing.T) {
	ts := testServer(t)
	getJSON(t, ts, "/v1/challenge", http.StatusNotFound, nil)
}

func TestGenerateIsIdempotent(t *testing.T) {
	ts := testServer(t)

	var first domain.GenerationResult
	postJSON(t, ts, "/v1/challenge/generate", nil, http.StatusOK, &first)
	if first.Challenge == nil {
		t.Fatal("missing challenge in generation result")
	}

	var second domain.GenerationResult
	postJSON(t, ts, "/v1/challenge/generate", nil, http.StatusOK, &second)
	if second.Challenge.ID != first.Challenge.ID {
		t.Errorf("second generate created %s, want existing %s", second.Challenge.ID, first.Challenge.ID)
	}
	if len(second.Warnings) == 0 {
		t.Error("second generate should carry an already-exists warning")
	}

	var ch domain.MonthlyChallenge
	getJSON(t, ts, "/v1/challenge", http.StatusOK, &ch)
	if ch.ID != first.Challenge.ID {
		t.Errorf("current challenge = %s, want %s", ch.ID, first.Challenge.ID)
	}
}

func TestRecordActivityFlowsIntoStatus(t *testing.T) {
	ts := testServer(t)

	postJSON(t, ts, "/v1/challenge/generate", nil, http.StatusOK, nil)

	today := time.Now().Format(domain.DayFormat)
	postJSON(t, ts, "/v1/activity", domain.DailyActivityRecord{
		Day:              today,
		HabitCompletions: 4,
		JournalEntries:   3,
	}, http.StatusOK, nil)

	var snap progression.Snapshot
	getJSON(t, ts, "/v1/status", http.StatusOK, &snap)
	if snap.Challenge == nil {
		t.Fatal("status missing challenge")
	}
	if snap.Challenge.Requirements[0].Current != 4 {
		t.Errorf("progress current = %d, want 4", snap.Challenge.Requirements[0].Current)
	}
	if snap.Streak.CurrentStreak != 1 {
		t.Errorf("streak = %d, want 1", snap.Streak.CurrentStreak)
	}
	if snap.Baseline == nil || snap.Baseline.TotalHabitCompletions != 4 {
		t.Errorf("baseline not reflecting activity: %+v", snap.Baseline)
	}
}

func TestRecordActivity_RejectsBadBody(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Post(ts.URL+"/v1/activity", "application/json", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestWarmUp_RejectsFutureDay(t *testing.T) {
	ts := testServer(t)

	tomorrow := time.Now().AddDate(0, 0, 1).Format(domain.DayFormat)
	postJSON(t, ts, "/v1/streak/warmup", map[string]string{"missed_day": tomorrow}, http.StatusBadRequest, nil)
}

func TestLifecycleEndpoint(t *testing.T) {
	ts := testServer(t)
	month := time.Now().Format(domain.MonthFormat)

	postJSON(t, ts, "/v1/challenge/generate", nil, http.StatusOK, nil)

	var body struct {
		State       domain.LifecycleState        `json:"state"`
		Transitions []domain.LifecycleTransition `json:"transitions"`
	}
	getJSON(t, ts, "/v1/lifecycle/"+month, http.StatusOK, &body)
	if body.State.Phase != domain.PhaseActive {
		t.Errorf("phase = %s, want active", body.State.Phase)
	}
	if len(body.Transitions) == 0 {
		t.Error("expected at least the idle -> active transition")
	}

	getJSON(t, ts, "/v1/lifecycle/not-a-month", http.StatusBadRequest, nil)
}

func TestCloseMonthEndpoint(t *testing.T) {
	ts := testServer(t)
	month := time.Now().Format(domain.MonthFormat)

	// Nothing generated yet: nothing to close.
	postJSON(t, ts, fmt.Sprintf("/v1/month/%s/close", month), nil, http.StatusNotFound, nil)

	postJSON(t, ts, "/v1/challenge/generate", nil, http.StatusOK, nil)

	var ch domain.MonthlyChallenge
	postJSON(t, ts, fmt.Sprintf("/v1/month/%s/close", month), nil, http.StatusOK, &ch)
	if ch.Status != domain.ChallengeExpired {
		t.Errorf("status = %s, want expired with no recorded activity", ch.Status)
	}

	// Re-closing a closed month conflicts.
	postJSON(t, ts, fmt.Sprintf("/v1/month/%s/close", month), nil, http.StatusConflict, nil)
}

func TestStreakEndpoints(t *testing.T) {
	ts := testServer(t)

	var st domain.StreakState
	getJSON(t, ts, "/v1/streak", http.StatusOK, &st)
	if st.CurrentStreak != 0 {
		t.Errorf("fresh streak = %d, want 0", st.CurrentStreak)
	}

	var debt domain.DebtReport
	getJSON(t, ts, "/v1/streak/debt", http.StatusOK, &debt)
	if debt.MissedDays != 0 {
		t.Errorf("fresh debt = %d, want 0", debt.MissedDays)
	}
}
