package client

import "time"

// AgentState is one monitoring agent's point-in-time snapshot
type AgentState struct {
	Name          string                 `json:"name"`
	Running       bool                   `json:"running"`
	Interval      time.Duration          `json:"interval"`
	LastCheckTime time.Time              `json:"last_check_time"`
	LastError     string                 `json:"last_error,omitempty"`
	Status        map[string]interface{} `json:"status,omitempty"`
}

// ChannelResult records one notification channel's delivery outcome
type ChannelResult struct {
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// Alert is a dispatched alert from the history API
type Alert struct {
	ID             string                   `json:"id"`
	SourceKind     string                   `json:"source_kind"`
	Severity       string                   `json:"severity"`
	Title          string                   `json:"title"`
	Message        string                   `json:"message"`
	DedupKey       string                   `json:"dedup_key"`
	Payload        map[string]interface{}   `json:"payload,omitempty"`
	ChannelResults map[string]ChannelResult `json:"channel_results,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// Identity is the actor behind a recorded API call
type Identity struct {
	UserName  string `json:"user_name,omitempty"`
	ARN       string `json:"arn,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	Type      string `json:"type,omitempty"`
}

// ActivityEvent is a flagged activity record
type ActivityEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	EventName    string    `json:"event_name"`
	EventSource  string    `json:"event_source,omitempty"`
	Region       string    `json:"region,omitempty"`
	Actor        Identity  `json:"actor"`
	SourceIP     string    `json:"source_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	ReadOnly     bool      `json:"read_only"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Anomaly is a cost anomaly record
type Anomaly struct {
	ID             string    `json:"id"`
	ImpactAmount   float64   `json:"impact_amount"`
	DimensionValue string    `json:"dimension_value,omitempty"`
	Service        string    `json:"service,omitempty"`
	Region         string    `json:"region,omitempty"`
	RootCauses     []string  `json:"root_causes,omitempty"`
	Status         string    `json:"status"`
	DetectedAt     time.Time `json:"detected_at"`
	ResourceID     string    `json:"resource_id,omitempty"`
}

// UserMetrics is one user's aggregated activity profile
type UserMetrics struct {
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

// CostAttribution is one user's aggregated cost profile
type CostAttribution struct {
	UserID          string             `json:"user_id"`
	TotalCost       float64            `json:"total_cost"`
	CostByService   map[string]float64 `json:"cost_by_service"`
	CostByRegion    map[string]float64 `json:"cost_by_region"`
	ResourceCount   int                `json:"resource_count"`
	CostPerResource float64            `json:"cost_per_resource"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// UserDetail combines a user's usage and cost profiles
type UserDetail struct {
	Metrics *UserMetrics     `json:"metrics"`
	Costs   *CostAttribution `json:"costs,omitempty"`
}

// HealthResponse is the health endpoint's payload
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
