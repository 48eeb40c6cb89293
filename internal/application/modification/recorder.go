package modification

import "time"

// Recorder receives operational measurements. The monitoring package provides
// the Prometheus-backed implementation.
type Recorder interface {
	CacheLookup(hit bool)
	CacheSwept(removed int)
	QuotaChecked(allowed bool)
	ModelInvoked(provider, outcome string, duration time.Duration)
	ModificationFinished(outcome string, duration time.Duration)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) CacheLookup(bool)                           {}
func (NopRecorder) CacheSwept(int)                             {}
func (NopRecorder) QuotaChecked(bool)                          {}
func (NopRecorder) ModelInvoked(string, string, time.Duration) {}
func (NopRecorder) ModificationFinished(string, time.Duration) {}
