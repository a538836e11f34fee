package types

import "time"

// Status is the supervisor's in-memory state as observed at one instant.
type Status struct {
	Phase        string
	Healthy      bool
	UnhealthyFor time.Duration
	FailTimeout  time.Duration
	StartedAt    time.Time
	LastFeed     time.Time
	Feeds        uint64
	Withheld     uint64
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	RunID         string     `json:"run_id"`
	Phase         string     `json:"phase"`
	Healthy       bool       `json:"healthy"`
	UnhealthyFor  float64    `json:"unhealthy_for_seconds"`
	FailTimeout   float64    `json:"fail_timeout_seconds"`
	UptimeSeconds float64    `json:"uptime_seconds"`
	Feeds         uint64     `json:"feeds"`
	Withheld      uint64     `json:"withheld"`
	LastFeed      *time.Time `json:"last_feed,omitempty"`
}
