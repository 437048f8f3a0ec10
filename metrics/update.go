package metrics

import "sync/atomic"

// LoadMetrics counts one loader run. Fetch workers and the writer update it concurrently.
type LoadMetrics struct {
	Processed            atomic.Int32
	Inserted             atomic.Int32
	Updated              atomic.Int32
	Skipped              atomic.Int32
	AttributesAdded      atomic.Int32
	AttributesRegistered atomic.Int32
	MediaAdded           atomic.Int32
	Errors               atomic.Int32
	CoverageGaps         atomic.Int32
	Commits              atomic.Int32
}
