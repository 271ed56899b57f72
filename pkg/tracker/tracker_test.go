package tracker

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/eva-app/evaclient/pkg/models"
)

var _ Tracker = (*SQLiteTracker)(nil)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func record(id, method, path string, outcome models.Outcome, latency int64, at time.Time) models.DispatchRecord {
	return models.DispatchRecord{
		ID: id, Method: method, Path: path, Outcome: outcome,
		Code: 200, LatencyMs: latency, CreatedAt: at,
	}
}

func TestRecordAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"a", "b", "c"} {
		rec := record(id, "GET", "/api/user/profile", models.OutcomeOK, 10, now.Add(time.Duration(i)*time.Second))
		if err := tr.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := tr.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "c" || records[1].ID != "b" {
		t.Errorf("expected newest first, got %s, %s", records[0].ID, records[1].ID)
	}
	if records[0].Outcome != models.OutcomeOK {
		t.Errorf("expected outcome ok, got %s", records[0].Outcome)
	}
}

func TestRecordConcurrent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const n = 50
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- tr.Record(ctx, record("r"+strconv.Itoa(i), "POST", "/api/pets", models.OutcomeOK, 5, now))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	count, err := tr.CountByOutcome(ctx, models.OutcomeOK, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Errorf("expected %d records, got %d", n, count)
	}
}

func TestRecordDuplicateID(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	rec := record("dup", "POST", "/api/auth/login", models.OutcomeOK, 5, time.Time{})
	if err := tr.Record(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := tr.Record(ctx, rec); err == nil {
		t.Error("expected error on duplicate id")
	}
}

func TestCountByOutcome(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, record("1", "GET", "/a", models.OutcomeNetwork, 0, now))
	_ = tr.Record(ctx, record("2", "GET", "/a", models.OutcomeNetwork, 0, now))
	_ = tr.Record(ctx, record("3", "GET", "/a", models.OutcomeOK, 0, now))
	_ = tr.Record(ctx, record("4", "GET", "/a", models.OutcomeNetwork, 0, now.Add(-time.Hour)))

	n, err := tr.CountByOutcome(ctx, models.OutcomeNetwork, now.Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2, got %d", n)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, record("1", "POST", "/api/auth/login", models.OutcomeOK, 10, now))
	_ = tr.Record(ctx, record("2", "POST", "/api/auth/login", models.OutcomeOK, 30, now))
	_ = tr.Record(ctx, record("3", "POST", "/api/auth/login", models.OutcomeBusiness, 5, now))
	_ = tr.Record(ctx, record("4", "GET", "/api/user/profile", models.OutcomeAuthExpired, 8, now))

	summaries, err := tr.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}

	login, err := tr.Summary(ctx, "/api/auth/login")
	if err != nil {
		t.Fatal(err)
	}
	if len(login) != 2 {
		t.Fatalf("expected 2 summaries for login, got %d", len(login))
	}
	ok := login[1]
	if ok.Outcome != models.OutcomeOK {
		ok = login[0]
	}
	if ok.RequestCount != 2 {
		t.Errorf("expected 2 requests, got %d", ok.RequestCount)
	}
	if ok.AvgLatencyMs != 20 {
		t.Errorf("expected avg latency 20, got %v", ok.AvgLatencyMs)
	}
}

func TestPrune(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, record("old", "GET", "/a", models.OutcomeOK, 0, now.Add(-48*time.Hour)))
	_ = tr.Record(ctx, record("new", "GET", "/a", models.OutcomeOK, 0, now))

	n, err := tr.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned, got %d", n)
	}

	records, _ := tr.Recent(ctx, 10)
	if len(records) != 1 || records[0].ID != "new" {
		t.Errorf("expected only the new record to remain, got %+v", records)
	}
}
