package detector

import (
	"strings"

	"github.com/awstrack/awstrack/internal/domain/activity"
)

// Flag reasons reported by the activity rule set.
const (
	ReasonHighRiskOperation = "high_risk_operation"
	ReasonAccessDenied      = "access_denied"
	ReasonSuspiciousAgent   = "suspicious_user_agent"
	ReasonSuspiciousIP      = "suspicious_source_ip"
)

// ActivityRuleSet classifies activity events as suspicious. Detection is
// deterministic; no state is retained between cycles beyond the rules.
type ActivityRuleSet struct {
	highRiskOps  map[string]struct{}
	deniedCodes  map[string]struct{}
	agentNeedles []string
	ipNeedles    []string
}

// NewActivityRuleSet builds a rule set from the configured lists.
// User-agent patterns are matched case-insensitively as substrings;
// source IP patterns as prefixes (exact IPs or CIDR-style prefixes).
func NewActivityRuleSet(highRiskOps, deniedCodes, suspiciousAgents, suspiciousIPs []string) *ActivityRuleSet {
	rs := &ActivityRuleSet{
		highRiskOps: make(map[string]struct{}, len(highRiskOps)),
		deniedCodes: make(map[string]struct{}, len(deniedCodes)),
	}
	for _, op := range highRiskOps {
		rs.highRiskOps[op] = struct{}{}
	}
	for _, code := range deniedCodes {
		rs.deniedCodes[code] = struct{}{}
	}
	for _, pat := range suspiciousAgents {
		rs.agentNeedles = append(rs.agentNeedles, strings.ToLower(pat))
	}
	for _, pat := range suspiciousIPs {
		if pat = strings.TrimSpace(pat); pat != "" {
			rs.ipNeedles = append(rs.ipNeedles, pat)
		}
	}
	return rs
}

// Evaluate reports whether the event is high risk, and the first matching
// reason when it is.
func (rs *ActivityRuleSet) Evaluate(e *activity.Event) (bool, string) {
	if _, ok := rs.highRiskOps[e.EventName]; ok {
		return true, ReasonHighRiskOperation
	}
	if _, ok := rs.deniedCodes[e.ErrorCode]; ok {
		return true, ReasonAccessDenied
	}

	ua := strings.ToLower(e.UserAgent)
	for _, needle := range rs.agentNeedles {
		if strings.Contains(ua, needle) {
			return true, ReasonSuspiciousAgent
		}
	}
	for _, prefix := range rs.ipNeedles {
		if strings.HasPrefix(e.SourceIP, prefix) {
			return true, ReasonSuspiciousIP
		}
	}
	return false, ""
}
