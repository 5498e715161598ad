package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/awstrack/awstrack/internal/domain/analytics"
	"github.com/awstrack/awstrack/internal/repository/sqlite"
	"github.com/awstrack/awstrack/internal/testutil"
)

func usageRow(userID string, total int) *analytics.UserMetricsSnapshot {
	return &analytics.UserMetricsSnapshot{
		UserID:        userID,
		TotalEvents:   total,
		ReadEvents:    total,
		ServicesUsed:  []string{"s3"},
		RegionsUsed:   []string{"us-east-1"},
		UsageCategory: analytics.CategoryLight,
	}
}

func TestSnapshotRepository_SaveAndLatestUsage(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := sqlite.NewSnapshotRepository(db).(*sqlite.SnapshotRepository)
	ctx := context.Background()

	t1 := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	if err := repo.SaveUsage(ctx, t1, []*analytics.UserMetricsSnapshot{usageRow("alice", 1)}); err != nil {
		t.Fatalf("SaveUsage() error = %v", err)
	}
	if err := repo.SaveUsage(ctx, t2, []*analytics.UserMetricsSnapshot{
		usageRow("alice", 5),
		usageRow("bob", 2),
	}); err != nil {
		t.Fatalf("second SaveUsage() error = %v", err)
	}

	latest, err := repo.LatestUsage(ctx)
	if err != nil {
		t.Fatalf("LatestUsage() error = %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("LatestUsage() returned %d rows, want the newest snapshot's 2", len(latest))
	}
	byUser := map[string]*analytics.UserMetricsSnapshot{}
	for _, u := range latest {
		byUser[u.UserID] = u
	}
	if byUser["alice"] == nil || byUser["alice"].TotalEvents != 5 {
		t.Errorf("alice row = %+v, want the t2 value", byUser["alice"])
	}
	if byUser["bob"] == nil || byUser["bob"].ServicesUsed[0] != "s3" {
		t.Errorf("bob row = %+v", byUser["bob"])
	}
}

func TestSnapshotRepository_SaveUsageIsReplayable(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := sqlite.NewSnapshotRepository(db).(*sqlite.SnapshotRepository)
	ctx := context.Background()

	ts := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	rows := []*analytics.UserMetricsSnapshot{usageRow("alice", 1)}

	// Re-running the same snapshot replaces rather than duplicates.
	if err := repo.SaveUsage(ctx, ts, rows); err != nil {
		t.Fatalf("SaveUsage() error = %v", err)
	}
	rows[0].TotalEvents = 3
	if err := repo.SaveUsage(ctx, ts, rows); err != nil {
		t.Fatalf("second SaveUsage() error = %v", err)
	}

	latest, err := repo.LatestUsage(ctx)
	if err != nil {
		t.Fatalf("LatestUsage() error = %v", err)
	}
	if len(latest) != 1 || latest[0].TotalEvents != 3 {
		t.Errorf("latest = %+v, want one row with 3 events", latest)
	}
}

func TestSnapshotRepository_SaveCosts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := sqlite.NewSnapshotRepository(db)
	ctx := context.Background()

	costs := []*analytics.CostAttribution{
		{
			UserID:        "alice",
			TotalCost:     1200,
			CostByService: map[string]float64{"ec2": 1200},
			CostByRegion:  map[string]float64{"us-east-1": 1200},
			ResourceCount: 1,
		},
	}
	if err := repo.SaveCosts(ctx, time.Now().UTC(), costs); err != nil {
		t.Fatalf("SaveCosts() error = %v", err)
	}
}

func TestSnapshotRepository_LatestUsageEmpty(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := sqlite.NewSnapshotRepository(db).(*sqlite.SnapshotRepository)

	latest, err := repo.LatestUsage(context.Background())
	if err != nil {
		t.Fatalf("LatestUsage() error = %v", err)
	}
	if len(latest) != 0 {
		t.Errorf("LatestUsage() on empty store returned %d rows", len(latest))
	}
}
