package config

import "time"

const (
	// Message transport
	DefaultPollInterval = 3 * time.Second

	// Match refresh loop
	DefaultScanInterval = 10 * time.Second

	// Radar layout
	MaxDisplayDistanceMeters = 10_000.0
	MinRadiusRatio           = 0.2

	// Candidate pool
	DefaultNearbyRadiusMeters = 25_000.0
	CandidateFetchConcurrency = 8

	// Collaborator calls
	DefaultCallTimeout = 5 * time.Second

	// Sends per user
	SendRateLimit = 2 // per second
	SendBurst     = 5

	// List store
	ListLockTTL = 5 * time.Second
)

// NotificationKeys maps a failure kind to its localization key.
var NotificationKeys = map[string]string{
	"conflict":   "deal.conflict",
	"permanent":  "deal.permanent",
	"validation": "deal.validation",
	"transient":  "deal.transient",
}
