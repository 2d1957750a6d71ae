package progress

// Reporter consumes progress events. Implementations must tolerate
// repeated RUN_DONE events and never block the harvest loop for long.
type Reporter interface {
	Report(evt Event)
}

// MultiReporter fans one event out to several reporters in order.
type MultiReporter []Reporter

// Report forwards evt to every non-nil reporter.
func (m MultiReporter) Report(evt Event) {
	for _, r := range m {
		if r != nil {
			r.Report(evt)
		}
	}
}
