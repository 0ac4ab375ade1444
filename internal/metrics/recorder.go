package metrics

import "time"

// BuildOutcomeLabel enumerates full-build outcomes for counters.
type BuildOutcomeLabel string

const (
	BuildSuccess BuildOutcomeLabel = "success"
	BuildPartial BuildOutcomeLabel = "partial"
	BuildFailed  BuildOutcomeLabel = "failed"
)

// OutputLabel enumerates what happened to one output file.
type OutputLabel string

const (
	OutputWritten   OutputLabel = "written"
	OutputUnchanged OutputLabel = "unchanged"
	OutputRemoved   OutputLabel = "removed"
)

// Recorder defines observability hooks for compositions, builds and
// incremental updates. Implementations may forward to Prometheus. All methods
// must be safe for nil receivers when using the NoopRecorder.
type Recorder interface {
	ObserveCompose(kind string, d time.Duration, success bool)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	ObserveUpdate(change string, d time.Duration)
	AddRecomposed(change string, n int)
	IncOutput(result OutputLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCompose(string, time.Duration, bool) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) ObserveUpdate(string, time.Duration)        {}
func (NoopRecorder) AddRecomposed(string, int)                  {}
func (NoopRecorder) IncOutput(OutputLabel)                      {}
