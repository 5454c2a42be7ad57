package models

import "time"

type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved:
		return true
	}
	return false
}

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert is a raised rule breach with an operator-attributed lifecycle.
// Alerts are derived state: they describe queue/engine health and never
// feed back into standings computation.
type Alert struct {
	ID             string        `json:"id"`
	RuleID         string        `json:"rule_id"`
	Severity       AlertSeverity `json:"severity"`
	Message        string        `json:"message"`
	Status         AlertStatus   `json:"status"`
	TriggeredAt    time.Time     `json:"triggered_at"`
	AcknowledgedBy *string       `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedBy     *string       `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
}

// AlertRule describes one threshold-based evaluation.
type AlertRule struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Severity    AlertSeverity `json:"severity"`
}
