package domain

import "time"

type TargetID string

// Target is a watched DAV account as exposed over the API. Credentials stay
// in the watch configuration and never reach this type.
type Target struct {
	ID        TargetID  `json:"id"`
	Kind      string    `json:"kind"`
	Server    string    `json:"server"`
	User      string    `json:"user"`
	Dir       string    `json:"dir,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CheckResult is one recorded run of the check sequence against a target.
type CheckResult struct {
	ID        string    `json:"id"`
	TargetID  TargetID  `json:"target_id"`
	Status    string    `json:"status"` // OK|WARNING|CRITICAL|UNKNOWN
	Message   string    `json:"message,omitempty"`
	LatencyMS float64   `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
}

func (r CheckResult) OK() bool { return r.Status == "OK" }
