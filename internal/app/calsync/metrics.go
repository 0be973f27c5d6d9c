package calsync

// Metrics receives sync outcomes.
type Metrics interface {
	ObserveLoad(source, result string)
	ObserveCommit(target, result string, records int)
}

const (
	SourceRemote   = "remote"
	SourceLocal    = "local"
	SourceFallback = "fallback"

	ResultOK      = "ok"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

type nopMetrics struct{}

func (nopMetrics) ObserveLoad(string, string)        {}
func (nopMetrics) ObserveCommit(string, string, int) {}
