package shared

import "time"

// Server Configuration
const (
	DefaultShutdownTimeout = 30 * time.Second
	DefaultPortRangeStart  = 11400
	DefaultPortRangeEnd    = 11499
	PortProbeTimeout       = 200 * time.Millisecond
	// DefaultBodyLimit caps POST /ollama bodies, in echo's size notation
	DefaultBodyLimit = "8M"
)

// Runtime Configuration
const (
	DefaultRuntimeBinary     = "ollama"
	DefaultModel             = "openchat"
	DefaultListTimeout       = 30 * time.Second
	DefaultPullTimeout       = 30 * time.Minute
	DefaultRunTimeout        = 10 * time.Minute
	DefaultMaxConcurrentRuns = 4
)

// Provisioning Configuration
const (
	SettleModePoll  = "poll"
	SettleModeDelay = "delay"

	DefaultSettleDelay        = 5 * time.Second
	DefaultSettleInitialDelay = 250 * time.Millisecond
	DefaultSettleMaxDelay     = 2 * time.Second
	DefaultSettleDeadline     = 5 * time.Second
	SettleBackoffMultiplier   = 2.0

	ProvisionLockTTL  = 35 * time.Minute
	ProvisionLockWait = 30 * time.Minute
	ProvisionLockPoll = 2 * time.Second
)

// Metrics
const (
	// MetricsOtherModel replaces model names that were never confirmed by the
	// runtime so request input cannot grow label cardinality.
	MetricsOtherModel = "other"
)

// Response Messages
const (
	MsgNoHTML          = "No HTML content provided to extract fields from."
	MsgFetchModelsFail = "Failed to fetch models"
	MsgDownloadFailed  = "Failed to download the model: %s"
	MsgOtherVerbs      = "This endpoint can be extended for other HTTP verbs"
)
