package eviction

import "time"

// OrchestratorConfig holds the tunables an operator sets for this
// package, loaded the way the rest of gojodb loads its section of the
// server config file (yaml-tagged struct, defaults applied by the
// caller before unmarshalling).
type OrchestratorConfig struct {
	// SpinYieldBudget bounds how long a forced AcquireExclusive call may
	// spin waiting on a live hazard reference before the caller should
	// give up and log a stuck-eviction warning. The Acquirer itself does
	// not enforce this -- it is read by the eviction-server goroutine
	// that wraps Orchestrator.Evict with a context.WithTimeout built from
	// this value.
	SpinYieldBudget time.Duration `yaml:"spin_yield_budget"`

	// HazardSlotsPerSession sizes every Session's hazard slot array at
	// construction (NewSession). Must be at least the maximum number of
	// cursors a single session may hold open concurrently.
	HazardSlotsPerSession int `yaml:"hazard_slots_per_session"`
}

// DefaultOrchestratorConfig returns the configuration a freshly started
// server uses absent an explicit override.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		SpinYieldBudget:       5 * time.Second,
		HazardSlotsPerSession: 8,
	}
}
