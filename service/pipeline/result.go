package pipeline

// Status summarizes how much of a processing unit succeeded.
type Status int

const (
	// Succeeded means every phase of the unit completed.
	Succeeded Status = iota
	// Partial means some phases completed and some failed.
	Partial
	// Failed means no phase produced a persisted result.
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Partial:
		return "partial"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result reports the outcome of processing one unit. Errs holds the
// per-phase or per-transaction failures; a Succeeded result has none.
type Result struct {
	Status Status
	Errs   []error
}

func makeResult(total, failed int, errs []error) Result {
	switch {
	case failed == 0:
		return Result{Status: Succeeded}
	case failed >= total && total > 0:
		return Result{Status: Failed, Errs: errs}
	default:
		return Result{Status: Partial, Errs: errs}
	}
}
