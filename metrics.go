package lockgate

import "sync/atomic"

// MetricID identifies one in-process counter.
type MetricID int

const (
	// MetricLoginSuccess counts fully established sessions.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected primary attempts (bad input,
	// unknown account, unverified email, wrong password).
	MetricLoginFailure
	// MetricAccountLocked counts attempts that locked an account or hit an
	// existing lock.
	MetricAccountLocked
	// MetricTwoFactorRequired counts primary successes that entered the
	// pending-second-factor state.
	MetricTwoFactorRequired
	// MetricTwoFactorSuccess counts accepted step-up attempts.
	MetricTwoFactorSuccess
	// MetricTwoFactorFailure counts rejected step-up attempts.
	MetricTwoFactorFailure
	// MetricLogout counts logouts of sessions that carried an identity.
	MetricLogout

	metricCount
)

// Metrics holds atomic counters for the flow. All methods are safe for
// concurrent use; a nil receiver is a no-op so metrics can be left
// unconfigured.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

// NewMetrics creates an empty counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc increments a single counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id < 0 || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Get returns the current value of a single counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || id < 0 || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	snap := make(map[MetricID]uint64, metricCount)
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap[id] = m.counters[id].Load()
	}
	return snap
}
