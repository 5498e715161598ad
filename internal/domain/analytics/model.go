package analytics

import (
	"context"
	"sort"
	"time"
)

// Usage categories, coarse buckets over total event volume.
const (
	CategoryInactive  = "inactive"
	CategoryLight     = "light"
	CategoryModerate  = "moderate"
	CategoryHeavy     = "heavy"
	CategoryVeryHeavy = "very_heavy"
)

// CategoryBounds are the lower bounds (inclusive) of each category above
// inactive. Bounds must be strictly increasing so the buckets are exhaustive
// and non-overlapping over totalEvents >= 0.
type CategoryBounds struct {
	Light     int
	Moderate  int
	Heavy     int
	VeryHeavy int
}

// DefaultCategoryBounds matches light=1-9, moderate=10-99, heavy=100-499,
// very_heavy=500+.
var DefaultCategoryBounds = CategoryBounds{Light: 1, Moderate: 10, Heavy: 100, VeryHeavy: 500}

// Categorize maps a total event count to exactly one usage category.
func (b CategoryBounds) Categorize(totalEvents int) string {
	switch {
	case totalEvents >= b.VeryHeavy:
		return CategoryVeryHeavy
	case totalEvents >= b.Heavy:
		return CategoryHeavy
	case totalEvents >= b.Moderate:
		return CategoryModerate
	case totalEvents >= b.Light:
		return CategoryLight
	default:
		return CategoryInactive
	}
}

// ScoreWeights are the tunable weights of the activity score formula:
//
//	score = total*Total + write*Write + highRisk*HighRisk - errors*ErrorPenalty + recency
//
// where recency is max(0, RecencyBonusDays - daysSinceLastSeen).
type ScoreWeights struct {
	Total            float64
	Write            float64
	HighRisk         float64
	ErrorPenalty     float64
	RecencyBonusDays int
}

// DefaultScoreWeights reproduce the published sample figures.
var DefaultScoreWeights = ScoreWeights{Total: 1, Write: 2, HighRisk: 5, ErrorPenalty: 0.5, RecencyBonusDays: 10}

// Score computes the activity score at time now.
func (w ScoreWeights) Score(totalEvents, writeEvents, highRiskEvents, errorCount int, lastSeen time.Time, now time.Time) float64 {
	score := float64(totalEvents)*w.Total +
		float64(writeEvents)*w.Write +
		float64(highRiskEvents)*w.HighRisk -
		float64(errorCount)*w.ErrorPenalty

	if !lastSeen.IsZero() {
		days := int(now.Sub(lastSeen).Hours() / 24)
		if bonus := w.RecencyBonusDays - days; bonus > 0 {
			score += float64(bonus)
		}
	}
	return score
}

// UserMetrics is the per-actor usage profile. One per distinct actor,
// created on first observed event, never deleted outside an explicit reset.
type UserMetrics struct {
	UserID         string
	UserARN        string
	TotalEvents    int
	ReadEvents     int
	WriteEvents    int
	HighRiskEvents int
	ErrorCount     int
	ServicesUsed   map[string]struct{}
	RegionsUsed    map[string]struct{}
	EventTypes     map[string]int
	FirstSeen      time.Time
	LastSeen       time.Time
	ActivityScore  float64
	UsageCategory  string
}

// NewUserMetrics creates an empty profile for an actor first seen at ts.
func NewUserMetrics(userID, arn string, ts time.Time) *UserMetrics {
	return &UserMetrics{
		UserID:        userID,
		UserARN:       arn,
		ServicesUsed:  make(map[string]struct{}),
		RegionsUsed:   make(map[string]struct{}),
		EventTypes:    make(map[string]int),
		FirstSeen:     ts,
		LastSeen:      ts,
		UsageCategory: CategoryInactive,
	}
}

// UserMetricsSnapshot is the read-only, JSON-friendly view of UserMetrics.
type UserMetricsSnapshot struct {
	UserID         string         `json:"user_id"`
	UserARN        string         `json:"user_arn,omitempty"`
	TotalEvents    int            `json:"total_events"`
	ReadEvents     int            `json:"read_events"`
	WriteEvents    int            `json:"write_events"`
	HighRiskEvents int            `json:"high_risk_events"`
	ErrorCount     int            `json:"error_count"`
	ServicesUsed   []string       `json:"services_used"`
	RegionsUsed    []string       `json:"regions_used"`
	EventTypes     map[string]int `json:"event_types,omitempty"`
	FirstSeen      time.Time      `json:"first_seen"`
	LastSeen       time.Time      `json:"last_seen"`
	ActivityScore  float64        `json:"activity_score"`
	UsageCategory  string         `json:"usage_category"`
}

// Snapshot copies the metrics into an immutable view with sorted sets.
func (m *UserMetrics) Snapshot() *UserMetricsSnapshot {
	s := &UserMetricsSnapshot{
		UserID:         m.UserID,
		UserARN:        m.UserARN,
		TotalEvents:    m.TotalEvents,
		ReadEvents:     m.ReadEvents,
		WriteEvents:    m.WriteEvents,
		HighRiskEvents: m.HighRiskEvents,
		ErrorCount:     m.ErrorCount,
		ServicesUsed:   sortedKeys(m.ServicesUsed),
		RegionsUsed:    sortedKeys(m.RegionsUsed),
		EventTypes:     make(map[string]int, len(m.EventTypes)),
		FirstSeen:      m.FirstSeen,
		LastSeen:       m.LastSeen,
		ActivityScore:  m.ActivityScore,
		UsageCategory:  m.UsageCategory,
	}
	for k, v := range m.EventTypes {
		s.EventTypes[k] = v
	}
	return s
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CostAttribution is the per-actor cost profile derived from cost records
// joined to actors via resource owner tags.
type CostAttribution struct {
	UserID          string             `json:"user_id"`
	TotalCost       float64            `json:"total_cost"`
	CostByService   map[string]float64 `json:"cost_by_service"`
	CostByRegion    map[string]float64 `json:"cost_by_region"`
	ResourceCount   int                `json:"resource_count"`
	CostPerResource float64            `json:"cost_per_resource"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// NewCostAttribution creates an empty cost profile.
func NewCostAttribution(userID string) *CostAttribution {
	return &CostAttribution{
		UserID:        userID,
		CostByService: make(map[string]float64),
		CostByRegion:  make(map[string]float64),
	}
}

// Clone copies the attribution for read-only use.
func (c *CostAttribution) Clone() *CostAttribution {
	out := &CostAttribution{
		UserID:          c.UserID,
		TotalCost:       c.TotalCost,
		CostByService:   make(map[string]float64, len(c.CostByService)),
		CostByRegion:    make(map[string]float64, len(c.CostByRegion)),
		ResourceCount:   c.ResourceCount,
		CostPerResource: c.CostPerResource,
		UpdatedAt:       c.UpdatedAt,
	}
	for k, v := range c.CostByService {
		out.CostByService[k] = v
	}
	for k, v := range c.CostByRegion {
		out.CostByRegion[k] = v
	}
	return out
}

// UserDetail combines both profiles for the detail query.
type UserDetail struct {
	Metrics *UserMetricsSnapshot `json:"metrics"`
	Costs   *CostAttribution     `json:"costs,omitempty"`
}

// OwnerResolver maps a resource identifier to the owning user ID.
// Empty string means the owner is unknown.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, resourceID string) (string, error)
}

// SnapshotRepository persists periodic aggregator snapshots.
type SnapshotRepository interface {
	SaveUsage(ctx context.Context, takenAt time.Time, users []*UserMetricsSnapshot) error
	SaveCosts(ctx context.Context, takenAt time.Time, costs []*CostAttribution) error
}
