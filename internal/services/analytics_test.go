package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/domain/analytics"
	"github.com/awstrack/awstrack/internal/domain/anomaly"
	apperrors "github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/testutil"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testAggregator(resolver analytics.OwnerResolver) *Aggregator {
	a := NewAggregator(analytics.DefaultScoreWeights, analytics.DefaultCategoryBounds, resolver, testLog())
	a.now = func() time.Time { return testNow }
	return a
}

func event(id, user, name string, readOnly bool, ts time.Time) *activity.Event {
	return &activity.Event{
		ID:        id,
		Timestamp: ts,
		EventName: name,
		Actor:     activity.Identity{UserName: user, ARN: "arn:aws:iam::123456789012:user/" + user},
		ReadOnly:  readOnly,
	}
}

func TestAggregator_SingleReadEvent(t *testing.T) {
	agg := testAggregator(nil)
	e := event("ev-1", "u1", "GetObject", true, testNow)
	e.EventSource = "s3.amazonaws.com"
	e.Region = "us-east-1"

	if err := agg.IngestActivity(context.Background(), e, false); err != nil {
		t.Fatalf("IngestActivity() error = %v", err)
	}

	detail, err := agg.UserDetail("u1")
	if err != nil {
		t.Fatalf("UserDetail() error = %v", err)
	}
	m := detail.Metrics
	if m.TotalEvents != 1 || m.ReadEvents != 1 || m.WriteEvents != 0 {
		t.Errorf("counts = %d/%d/%d, want 1/1/0", m.TotalEvents, m.ReadEvents, m.WriteEvents)
	}
	if m.UsageCategory != analytics.CategoryLight {
		t.Errorf("UsageCategory = %q, want light", m.UsageCategory)
	}
	if len(m.ServicesUsed) != 1 || m.ServicesUsed[0] != "s3" {
		t.Errorf("ServicesUsed = %v, want [s3]", m.ServicesUsed)
	}
	if len(m.RegionsUsed) != 1 || m.RegionsUsed[0] != "us-east-1" {
		t.Errorf("RegionsUsed = %v, want [us-east-1]", m.RegionsUsed)
	}
	// 1 event + full recency bonus.
	if m.ActivityScore != 11 {
		t.Errorf("ActivityScore = %v, want 11", m.ActivityScore)
	}
}

func TestAggregator_MixedActivityProfile(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()

	// 29 events: 9 read-only, 20 writes, 5 of them high risk.
	n := 0
	ingest := func(readOnly, highRisk bool) {
		n++
		e := event(fmt.Sprintf("ev-%d", n), "u1", "TestEvent", readOnly, testNow)
		if err := agg.IngestActivity(ctx, e, highRisk); err != nil {
			t.Fatalf("IngestActivity() error = %v", err)
		}
	}
	for i := 0; i < 9; i++ {
		ingest(true, false)
	}
	for i := 0; i < 15; i++ {
		ingest(false, false)
	}
	for i := 0; i < 5; i++ {
		ingest(false, true)
	}

	detail, err := agg.UserDetail("u1")
	if err != nil {
		t.Fatalf("UserDetail() error = %v", err)
	}
	m := detail.Metrics
	if m.TotalEvents != 29 || m.ReadEvents != 9 || m.WriteEvents != 20 || m.HighRiskEvents != 5 {
		t.Errorf("counts = %d/%d/%d/%d, want 29/9/20/5",
			m.TotalEvents, m.ReadEvents, m.WriteEvents, m.HighRiskEvents)
	}
	if m.TotalEvents != m.ReadEvents+m.WriteEvents {
		t.Error("totalEvents != readEvents + writeEvents")
	}
	if m.UsageCategory != analytics.CategoryModerate {
		t.Errorf("UsageCategory = %q, want moderate", m.UsageCategory)
	}
	// 29 + 20*2 + 5*5 + 10 recency.
	if m.ActivityScore != 104 {
		t.Errorf("ActivityScore = %v, want 104", m.ActivityScore)
	}
}

func TestAggregator_WriteHeavyProfileScore(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()

	// 29 events, 21 writes, 9 high risk.
	for i := 0; i < 29; i++ {
		readOnly := i < 8
		highRisk := i >= 20
		e := event(fmt.Sprintf("ev-%d", i), "u2", "TestEvent", readOnly, testNow)
		if err := agg.IngestActivity(ctx, e, highRisk); err != nil {
			t.Fatalf("IngestActivity() error = %v", err)
		}
	}

	detail, _ := agg.UserDetail("u2")
	// 29 + 21*2 + 9*5 + 10 recency.
	if detail.Metrics.ActivityScore != 126 {
		t.Errorf("ActivityScore = %v, want 126", detail.Metrics.ActivityScore)
	}
}

func TestAggregator_IngestIdempotentByEventID(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()
	e := event("ev-1", "u1", "PutObject", false, testNow)

	for i := 0; i < 3; i++ {
		if err := agg.IngestActivity(ctx, e, false); err != nil {
			t.Fatalf("IngestActivity() error = %v", err)
		}
	}

	detail, _ := agg.UserDetail("u1")
	if detail.Metrics.TotalEvents != 1 {
		t.Errorf("TotalEvents = %d after re-ingesting the same id, want 1", detail.Metrics.TotalEvents)
	}
}

func TestAggregator_IngestRejectsActorlessEvent(t *testing.T) {
	agg := testAggregator(nil)
	e := &activity.Event{ID: "ev-1", Timestamp: testNow, EventName: "GetObject"}

	err := agg.IngestActivity(context.Background(), e, false)
	if !apperrors.IsClassification(err) {
		t.Errorf("IngestActivity() error = %v, want classification error", err)
	}
}

func TestAggregator_FirstAndLastSeen(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()
	early := testNow.Add(-48 * time.Hour)
	late := testNow.Add(-1 * time.Hour)

	// Out of order arrival.
	agg.IngestActivity(ctx, event("ev-1", "u1", "A", true, late), false)
	agg.IngestActivity(ctx, event("ev-2", "u1", "B", true, early), false)

	detail, _ := agg.UserDetail("u1")
	if !detail.Metrics.FirstSeen.Equal(early) {
		t.Errorf("FirstSeen = %v, want %v", detail.Metrics.FirstSeen, early)
	}
	if !detail.Metrics.LastSeen.Equal(late) {
		t.Errorf("LastSeen = %v, want %v", detail.Metrics.LastSeen, late)
	}
}

func TestAggregator_IngestCostAttribution(t *testing.T) {
	resolver := &testutil.MockOwnerResolver{Owners: map[string]string{"i-abc123": "alice"}}
	agg := testAggregator(resolver)
	ctx := context.Background()

	records := []anomaly.Record{
		{ID: "an-1", ImpactAmount: 1200, Service: "ec2", Region: "us-east-1", ResourceID: "i-abc123", Status: anomaly.StatusOpen},
		{ID: "an-2", ImpactAmount: 300, Service: "s3", Region: "eu-west-1", Status: anomaly.StatusOpen},
	}
	for i := range records {
		if err := agg.IngestCost(ctx, &records[i]); err != nil {
			t.Fatalf("IngestCost() error = %v", err)
		}
	}

	top := agg.TopUsersByCost(10)
	if len(top) != 2 {
		t.Fatalf("TopUsersByCost returned %d users, want 2", len(top))
	}
	if top[0].UserID != "alice" || top[0].TotalCost != 1200 {
		t.Errorf("top cost user = %s/$%.2f, want alice/$1200", top[0].UserID, top[0].TotalCost)
	}
	if top[0].CostByService["ec2"] != 1200 || top[0].CostByRegion["us-east-1"] != 1200 {
		t.Errorf("alice breakdown = %v / %v", top[0].CostByService, top[0].CostByRegion)
	}
	if top[0].ResourceCount != 1 || top[0].CostPerResource != 1200 {
		t.Errorf("alice resources = %d at $%.2f each", top[0].ResourceCount, top[0].CostPerResource)
	}

	// No resolvable resource lands on the unattributed user.
	if top[1].UserID != UnattributedUser || top[1].TotalCost != 300 {
		t.Errorf("second user = %s/$%.2f, want %s/$300", top[1].UserID, top[1].TotalCost, UnattributedUser)
	}
	if top[1].CostPerResource != 0 {
		t.Errorf("unattributed CostPerResource = %v, want 0 with no resources", top[1].CostPerResource)
	}
}

func TestAggregator_IngestCostIdempotent(t *testing.T) {
	agg := testAggregator(nil)
	r := anomaly.Record{ID: "an-1", ImpactAmount: 500, Service: "ec2", Status: anomaly.StatusOpen}

	agg.IngestCost(context.Background(), &r)
	agg.IngestCost(context.Background(), &r)

	top := agg.TopUsersByCost(1)
	if top[0].TotalCost != 500 {
		t.Errorf("TotalCost = %v after duplicate ingest, want 500", top[0].TotalCost)
	}
}

func TestAggregator_ResolverFailureFallsBackToUnattributed(t *testing.T) {
	resolver := &testutil.MockOwnerResolver{ResolveError: errors.New("tags api down")}
	agg := testAggregator(resolver)
	r := anomaly.Record{ID: "an-1", ImpactAmount: 750, ResourceID: "i-xyz", Status: anomaly.StatusOpen}

	if err := agg.IngestCost(context.Background(), &r); err != nil {
		t.Fatalf("IngestCost() error = %v, want fallback not failure", err)
	}
	top := agg.TopUsersByCost(1)
	if top[0].UserID != UnattributedUser {
		t.Errorf("cost attributed to %s, want %s", top[0].UserID, UnattributedUser)
	}
}

func TestAggregator_TopUsersByUsage(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()

	// quiet: 1 event, busy: 3 events, risky: 2 events one high risk.
	agg.IngestActivity(ctx, event("q-1", "quiet", "A", true, testNow), false)
	for i := 0; i < 3; i++ {
		agg.IngestActivity(ctx, event(fmt.Sprintf("b-%d", i), "busy", "A", false, testNow), false)
	}
	agg.IngestActivity(ctx, event("r-1", "risky", "A", false, testNow), true)
	agg.IngestActivity(ctx, event("r-2", "risky", "A", true, testNow), false)

	top := agg.TopUsersByUsage(2)
	if len(top) != 2 {
		t.Fatalf("TopUsersByUsage(2) returned %d users", len(top))
	}
	// busy: 3+6+10=19, risky: 2+2+5+10=19 -> tie broken by id, busy first.
	if top[0].UserID != "busy" || top[1].UserID != "risky" {
		t.Errorf("top = [%s %s], want [busy risky]", top[0].UserID, top[1].UserID)
	}

	all := agg.TopUsersByUsage(0)
	if len(all) != 3 {
		t.Errorf("TopUsersByUsage(0) returned %d users, want all 3", len(all))
	}
}

func TestAggregator_InactiveUsers(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()

	agg.IngestActivity(ctx, event("ev-1", "stale", "A", true, testNow.AddDate(0, 0, -45)), false)
	agg.IngestActivity(ctx, event("ev-2", "fresh", "A", true, testNow.AddDate(0, 0, -5)), false)

	inactive := agg.InactiveUsers(30)
	if len(inactive) != 1 || inactive[0].UserID != "stale" {
		t.Errorf("InactiveUsers(30) = %v, want [stale]", inactive)
	}
}

func TestAggregator_UserDetailNotFound(t *testing.T) {
	agg := testAggregator(nil)
	_, err := agg.UserDetail("ghost")
	var appErr *apperrors.AppError
	if !apperrors.AsAppError(err, &appErr) || appErr.Code != apperrors.ErrCodeNotFound {
		t.Errorf("UserDetail() error = %v, want not found", err)
	}
}

func TestAggregator_UserDetailCostOnly(t *testing.T) {
	resolver := &testutil.MockOwnerResolver{Owners: map[string]string{"i-1": "carol"}}
	agg := testAggregator(resolver)
	r := anomaly.Record{ID: "an-1", ImpactAmount: 99, ResourceID: "i-1", Status: anomaly.StatusOpen}
	agg.IngestCost(context.Background(), &r)

	detail, err := agg.UserDetail("carol")
	if err != nil {
		t.Fatalf("UserDetail() error = %v", err)
	}
	if detail.Costs == nil || detail.Costs.TotalCost != 99 {
		t.Errorf("Costs = %+v, want total 99", detail.Costs)
	}
	if detail.Metrics == nil || detail.Metrics.TotalEvents != 0 {
		t.Errorf("Metrics = %+v, want empty profile", detail.Metrics)
	}
}

func TestAggregator_RefreshScoresDecays(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()
	agg.IngestActivity(ctx, event("ev-1", "u1", "A", true, testNow), false)

	before, _ := agg.UserDetail("u1")
	if before.Metrics.ActivityScore != 11 {
		t.Fatalf("score = %v, want 11", before.Metrics.ActivityScore)
	}

	// Two weeks later the recency bonus is gone.
	agg.now = func() time.Time { return testNow.AddDate(0, 0, 14) }
	if err := agg.RefreshScores(ctx); err != nil {
		t.Fatalf("RefreshScores() error = %v", err)
	}
	after, _ := agg.UserDetail("u1")
	if after.Metrics.ActivityScore != 1 {
		t.Errorf("score = %v after decay, want 1", after.Metrics.ActivityScore)
	}
}

func TestAggregator_Reset(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()
	agg.IngestActivity(ctx, event("ev-1", "u1", "A", true, testNow), false)
	r := anomaly.Record{ID: "an-1", ImpactAmount: 10, Status: anomaly.StatusOpen}
	agg.IngestCost(ctx, &r)

	agg.Reset()

	if agg.UsersTracked() != 0 {
		t.Errorf("UsersTracked = %d after reset, want 0", agg.UsersTracked())
	}
	// Dedup state is cleared too, the same ids ingest again.
	agg.IngestActivity(ctx, event("ev-1", "u1", "A", true, testNow), false)
	detail, _ := agg.UserDetail("u1")
	if detail.Metrics.TotalEvents != 1 {
		t.Error("event id still deduped after reset")
	}
}

func TestAggregator_StatusFields(t *testing.T) {
	agg := testAggregator(nil)
	ctx := context.Background()
	agg.IngestActivity(ctx, event("ev-1", "u1", "A", true, testNow), false)
	agg.IngestActivity(ctx, event("ev-2", "u2", "B", false, testNow), false)

	status := agg.StatusFields()
	if status["users_tracked"] != 2 || status["events_seen"] != 2 {
		t.Errorf("StatusFields = %v", status)
	}
}
