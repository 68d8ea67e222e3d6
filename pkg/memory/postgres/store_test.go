package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/pictalk/pkg/memory"
	"github.com/MrWong99/pictalk/pkg/memory/postgres"
	"github.com/MrWong99/pictalk/pkg/symbol"
)

// testDSN returns the test database DSN from the environment, or skips the
// test if PICTALK_TEST_POSTGRES_DSN is not set.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("PICTALK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PICTALK_TEST_POSTGRES_DSN not set, skipping PostgreSQL integration tests")
	}
	return dsn
}

// newTestStore creates a fresh [postgres.Store] on a clean schema.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	for _, stmt := range []string{
		"DROP TABLE IF EXISTS interactions CASCADE",
		"DROP TABLE IF EXISTS assignments CASCADE",
		"DROP TABLE IF EXISTS symbol_embeddings CASCADE",
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("drop schema %q: %v", stmt, err)
		}
	}
	pool.Close()

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

// ── InteractionLog ──────────────────────────────────────────────────────────

func TestStore_AppendSummaryRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	for _, in := range []memory.Interaction{
		{Username: "student1", Sentence: "hola", Words: []symbol.WordSymbol{{Word: "hola", Path: "H/hola.png"}}, Timestamp: first},
		{Username: "student1", Sentence: "hola gato", Words: []symbol.WordSymbol{{Word: "hola"}, {Word: "gato"}}, Categories: []string{"animales"}, Timestamp: second},
		{Username: "other", Sentence: "perro", Words: []symbol.WordSymbol{{Word: "perro"}}},
	} {
		if err := store.Append(ctx, in); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	summary, err := store.Summary(ctx, "student1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.TotalInteractions != 2 {
		t.Errorf("TotalInteractions = %d, want 2", summary.TotalInteractions)
	}
	if !summary.LastInteraction.Equal(second) {
		t.Errorf("LastInteraction = %v, want %v", summary.LastInteraction, second)
	}
	wantWords := []memory.WordCount{{Word: "hola", Count: 2}, {Word: "gato", Count: 1}}
	if diff := cmp.Diff(wantWords, summary.MostCommonWords); diff != "" {
		t.Errorf("MostCommonWords mismatch (-want +got):\n%s", diff)
	}

	recent, err := store.Recent(ctx, "student1", 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].Sentence != "hola gato" {
		t.Fatalf("Recent = %+v, want the newest interaction", recent)
	}
	if diff := cmp.Diff([]string{"animales"}, recent[0].Categories); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}

	analytics, err := store.Analytics(ctx, "student1")
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if analytics.Interactions != 2 || analytics.UniqueWords != 2 {
		t.Errorf("Analytics = %+v, want 2 interactions and 2 unique words", analytics)
	}
}

func TestStore_SummaryEmpty(t *testing.T) {
	store := newTestStore(t)
	got, err := store.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got.TotalInteractions != 0 || len(got.MostCommonWords) != 0 || !got.LastInteraction.IsZero() {
		t.Errorf("got %+v, want zero summary", got)
	}
}

// ── AssignmentStore ─────────────────────────────────────────────────────────

func TestStore_Assignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := memory.Assignment{ID: "a1", Username: "u", Type: memory.AssignmentTask, Task: "describe tu casa"}
	next := memory.Assignment{ID: "a2", Username: "u", Type: memory.AssignmentGuided, TargetWords: []string{"gato", "perro"}}
	for _, a := range []memory.Assignment{old, next} {
		if err := store.SaveAssignment(ctx, a); err != nil {
			t.Fatalf("SaveAssignment: %v", err)
		}
	}

	got, ok, err := store.ActiveAssignment(ctx, "u")
	if err != nil || !ok {
		t.Fatalf("ActiveAssignment: ok=%v err=%v", ok, err)
	}
	if got.ID != "a2" || got.Type != memory.AssignmentGuided {
		t.Errorf("active = %+v, want a2 guided", got)
	}
	if diff := cmp.Diff([]string{"gato", "perro"}, got.TargetWords); diff != "" {
		t.Errorf("TargetWords mismatch (-want +got):\n%s", diff)
	}

	if err := store.CompleteAssignment(ctx, "a2"); err != nil {
		t.Fatalf("CompleteAssignment: %v", err)
	}
	if _, ok, _ := store.ActiveAssignment(ctx, "u"); ok {
		t.Error("assignment still active after completion")
	}
	if err := store.CompleteAssignment(ctx, "missing"); !errors.Is(err, memory.ErrNotFound) {
		t.Errorf("CompleteAssignment(missing) = %v, want ErrNotFound", err)
	}
}

// ── EmbeddingCache ──────────────────────────────────────────────────────────

func TestStore_Embeddings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.PutEmbeddings(ctx, "m1", map[string][]float32{"gato": {1, 0, 0}, "perro": {0, 1, 0}}); err != nil {
		t.Fatalf("PutEmbeddings: %v", err)
	}
	if err := store.PutEmbeddings(ctx, "m1", map[string][]float32{"gato": {0, 0, 1}}); err != nil {
		t.Fatalf("PutEmbeddings overwrite: %v", err)
	}

	got, err := store.GetEmbeddings(ctx, "m1", []string{"gato", "casa"})
	if err != nil {
		t.Fatalf("GetEmbeddings: %v", err)
	}
	if diff := cmp.Diff(map[string][]float32{"gato": {0, 0, 1}}, got); diff != "" {
		t.Errorf("GetEmbeddings mismatch (-want +got):\n%s", diff)
	}
}
