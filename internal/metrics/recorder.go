// Package metrics records build and render counters for the preview server's
// /metrics endpoint.
package metrics

import "time"

// Outcome labels for finished builds.
const (
	OutcomeSuccess = "success"
	OutcomeWarning = "warning"
	OutcomeFailed  = "failed"
)

// Recorder receives build and render observations.
type Recorder interface {
	ObserveBuildDuration(target string, d time.Duration)
	IncBuildOutcome(target, outcome string)
	IncArticlesRendered(target string)
	IncRenderError(kind string)
	IncRebuild(trigger string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(string, time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string, string)             {}
func (NoopRecorder) IncArticlesRendered(string)                 {}
func (NoopRecorder) IncRenderError(string)                      {}
func (NoopRecorder) IncRebuild(string)                          {}
