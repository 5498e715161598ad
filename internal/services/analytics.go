package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/awstrack/awstrack/internal/domain/activity"
	"github.com/awstrack/awstrack/internal/domain/analytics"
	"github.com/awstrack/awstrack/internal/domain/anomaly"
	"github.com/awstrack/awstrack/internal/pkg/errors"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/metrics"
)

// UnattributedUser receives cost records whose owner cannot be resolved.
const UnattributedUser = "unattributed"

// Aggregator incrementally folds activity and cost records into per-actor
// usage and cost profiles. All writes are serialized behind one mutex since
// several agents feed it concurrently; readers get consistent snapshots
// taken between writes. Ingestion is idempotent by record ID.
type Aggregator struct {
	weights  analytics.ScoreWeights
	bounds   analytics.CategoryBounds
	resolver analytics.OwnerResolver
	logger   *logger.Logger
	now      func() time.Time

	mu            sync.Mutex
	users         map[string]*analytics.UserMetrics
	costs         map[string]*analytics.CostAttribution
	userResources map[string]map[string]struct{}
	seenEvents    map[string]struct{}
	seenAnomalies map[string]struct{}
}

// NewAggregator creates an empty aggregator. resolver may be nil, in which
// case every cost record lands on the unattributed user.
func NewAggregator(
	weights analytics.ScoreWeights,
	bounds analytics.CategoryBounds,
	resolver analytics.OwnerResolver,
	log *logger.Logger,
) *Aggregator {
	a := &Aggregator{
		weights:  weights,
		bounds:   bounds,
		resolver: resolver,
		logger:   log.WithComponent("analytics"),
		now:      time.Now,
	}
	a.reset()
	return a
}

// caller holds the lock (or is the constructor).
func (a *Aggregator) reset() {
	a.users = make(map[string]*analytics.UserMetrics)
	a.costs = make(map[string]*analytics.CostAttribution)
	a.userResources = make(map[string]map[string]struct{})
	a.seenEvents = make(map[string]struct{})
	a.seenAnomalies = make(map[string]struct{})
}

// Reset clears all profiles and dedup state.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset()
	metrics.SetUsersTracked(0)
	a.logger.Info("Analytics store reset")
}

// IngestActivity folds one activity event into its actor's usage profile.
// Re-ingesting an already seen event ID leaves the profile unchanged.
func (a *Aggregator) IngestActivity(_ context.Context, e *activity.Event, highRisk bool) error {
	userID := e.ActorID()
	if userID == "" {
		return errors.Classification(e.ID, errors.BadRequest("event has no actor identity"))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.seenEvents[e.ID]; dup {
		return nil
	}
	a.seenEvents[e.ID] = struct{}{}

	m, ok := a.users[userID]
	if !ok {
		m = analytics.NewUserMetrics(userID, e.Actor.ARN, e.Timestamp)
		a.users[userID] = m
		metrics.SetUsersTracked(len(a.users))
	}

	m.TotalEvents++
	if e.ReadOnly {
		m.ReadEvents++
	} else {
		m.WriteEvents++
	}
	if highRisk {
		m.HighRiskEvents++
	}
	if e.HasError() {
		m.ErrorCount++
	}
	if svc := e.Service(); svc != "" {
		m.ServicesUsed[svc] = struct{}{}
	}
	if e.Region != "" {
		m.RegionsUsed[e.Region] = struct{}{}
	}
	m.EventTypes[e.EventName]++

	if e.Timestamp.Before(m.FirstSeen) {
		m.FirstSeen = e.Timestamp
	}
	if e.Timestamp.After(m.LastSeen) {
		m.LastSeen = e.Timestamp
	}

	m.ActivityScore = a.weights.Score(m.TotalEvents, m.WriteEvents, m.HighRiskEvents, m.ErrorCount, m.LastSeen, a.now())
	m.UsageCategory = a.bounds.Categorize(m.TotalEvents)

	// Remember resources touched by the actor for cost attribution.
	for _, res := range e.Resources {
		id := res.ARN
		if id == "" {
			id = res.Name
		}
		if id == "" {
			continue
		}
		set, ok := a.userResources[userID]
		if !ok {
			set = make(map[string]struct{})
			a.userResources[userID] = set
		}
		set[id] = struct{}{}
	}

	metrics.RecordEventIngested()
	return nil
}

// IngestCost attributes one cost anomaly record to its owning user and
// updates that user's cost profile. Records already seen are skipped.
func (a *Aggregator) IngestCost(ctx context.Context, r *anomaly.Record) error {
	userID := a.resolveOwner(ctx, r)

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, dup := a.seenAnomalies[r.ID]; dup {
		return nil
	}
	a.seenAnomalies[r.ID] = struct{}{}

	c, ok := a.costs[userID]
	if !ok {
		c = analytics.NewCostAttribution(userID)
		a.costs[userID] = c
	}

	c.TotalCost += r.ImpactAmount
	if r.Service != "" {
		c.CostByService[r.Service] += r.ImpactAmount
	}
	if r.Region != "" {
		c.CostByRegion[r.Region] += r.ImpactAmount
	}
	if r.ResourceID != "" {
		set, ok := a.userResources[userID]
		if !ok {
			set = make(map[string]struct{})
			a.userResources[userID] = set
		}
		set[r.ResourceID] = struct{}{}
	}
	c.ResourceCount = len(a.userResources[userID])
	if c.ResourceCount > 0 {
		c.CostPerResource = c.TotalCost / float64(c.ResourceCount)
	} else {
		c.CostPerResource = 0
	}
	c.UpdatedAt = a.now()

	return nil
}

func (a *Aggregator) resolveOwner(ctx context.Context, r *anomaly.Record) string {
	resourceID := r.ResourceID
	if resourceID == "" {
		resourceID = r.DimensionValue
	}
	if a.resolver == nil || resourceID == "" {
		return UnattributedUser
	}
	owner, err := a.resolver.ResolveOwner(ctx, resourceID)
	if err != nil {
		a.logger.WithFields(map[string]interface{}{
			"resource": resourceID,
		}).ErrorWithErr(err, "Owner resolution failed")
		return UnattributedUser
	}
	if owner == "" {
		return UnattributedUser
	}
	return owner
}

// TopUsersByUsage returns up to limit users ordered by activity score.
func (a *Aggregator) TopUsersByUsage(limit int) []*analytics.UserMetricsSnapshot {
	a.mu.Lock()
	out := make([]*analytics.UserMetricsSnapshot, 0, len(a.users))
	for _, m := range a.users {
		out = append(out, m.Snapshot())
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ActivityScore != out[j].ActivityScore {
			return out[i].ActivityScore > out[j].ActivityScore
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// TopUsersByCost returns up to limit users ordered by attributed cost.
func (a *Aggregator) TopUsersByCost(limit int) []*analytics.CostAttribution {
	a.mu.Lock()
	out := make([]*analytics.CostAttribution, 0, len(a.costs))
	for _, c := range a.costs {
		out = append(out, c.Clone())
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCost != out[j].TotalCost {
			return out[i].TotalCost > out[j].TotalCost
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// InactiveUsers returns users whose last activity is older than sinceDays,
// or who have no recorded events at all, most stale first.
func (a *Aggregator) InactiveUsers(sinceDays int) []*analytics.UserMetricsSnapshot {
	cutoff := a.now().AddDate(0, 0, -sinceDays)

	a.mu.Lock()
	out := make([]*analytics.UserMetricsSnapshot, 0)
	for _, m := range a.users {
		if m.TotalEvents == 0 || m.LastSeen.Before(cutoff) {
			out = append(out, m.Snapshot())
		}
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastSeen.Before(out[j].LastSeen)
	})
	return out
}

// UserDetail returns both profiles for one user.
func (a *Aggregator) UserDetail(userID string) (*analytics.UserDetail, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m, hasMetrics := a.users[userID]
	c, hasCosts := a.costs[userID]
	if !hasMetrics && !hasCosts {
		return nil, errors.NotFound("user " + userID)
	}

	detail := &analytics.UserDetail{}
	if hasMetrics {
		detail.Metrics = m.Snapshot()
	} else {
		// Cost-only users still get an empty usage profile in the detail.
		detail.Metrics = analytics.NewUserMetrics(userID, "", time.Time{}).Snapshot()
	}
	if hasCosts {
		detail.Costs = c.Clone()
	}
	return detail, nil
}

// UsersTracked returns the number of distinct users with usage profiles.
func (a *Aggregator) UsersTracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.users)
}

// StatusFields reports aggregator counters for the agent state snapshot.
func (a *Aggregator) StatusFields() map[string]interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return map[string]interface{}{
		"users_tracked":    len(a.users),
		"users_with_costs": len(a.costs),
		"events_seen":      len(a.seenEvents),
	}
}

// Snapshot returns consistent copies of both profile sets, for the
// persistence job and the analytics refresh cycle.
func (a *Aggregator) Snapshot() ([]*analytics.UserMetricsSnapshot, []*analytics.CostAttribution) {
	a.mu.Lock()
	defer a.mu.Unlock()

	users := make([]*analytics.UserMetricsSnapshot, 0, len(a.users))
	for _, m := range a.users {
		users = append(users, m.Snapshot())
	}
	costs := make([]*analytics.CostAttribution, 0, len(a.costs))
	for _, c := range a.costs {
		costs = append(costs, c.Clone())
	}
	return users, costs
}

// RefreshScores recomputes every user's activity score against the current
// time, so recency bonuses decay without new events. Run periodically by
// the analytics agent.
func (a *Aggregator) RefreshScores(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	for _, m := range a.users {
		m.ActivityScore = a.weights.Score(m.TotalEvents, m.WriteEvents, m.HighRiskEvents, m.ErrorCount, m.LastSeen, now)
	}
	return nil
}
