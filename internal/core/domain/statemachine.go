package domain

// legalTransitions is the full lifecycle graph. Submitted is terminal; the
// transient in-progress states double as mutual-exclusion markers, so their
// rollback edges are part of the graph too.
var legalTransitions = map[DocumentStatus][]DocumentStatus{
	StatusUploaded:   {StatusExtracting},
	StatusExtracting: {StatusExtracted, StatusUploaded},
	StatusExtracted:  {StatusValidating, StatusExtracting},
	StatusValidating: {StatusValidated, StatusRejected, StatusExtracted},
	StatusValidated:  {StatusSubmitting, StatusValidating, StatusExtracting},
	StatusRejected:   {StatusValidating, StatusExtracting},
	StatusSubmitting: {StatusSubmitted, StatusSubmitFailed},
	StatusSubmitFailed: {
		StatusSubmitting, StatusValidating, StatusExtracting,
	},
	StatusSubmitted: nil,
}

func CanTransition(from, to DocumentStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	// Rollback edge: a transient state may return to any state that could
	// have entered it, so a failed or cancelled operation restores the
	// document to where the trigger found it.
	if IsInProgress(from) && !IsInProgress(to) {
		for _, next := range legalTransitions[to] {
			if next == from {
				return true
			}
		}
	}
	return false
}

// IsInProgress reports whether the status marks an operation currently
// holding the document's per-document exclusion.
func IsInProgress(status DocumentStatus) bool {
	switch status {
	case StatusExtracting, StatusValidating, StatusSubmitting:
		return true
	default:
		return false
	}
}

func IsTerminal(status DocumentStatus) bool {
	return status == StatusSubmitted
}

// ValidStatus reports whether s is a known lifecycle status, used when
// rehydrating persisted rows.
func ValidStatus(s DocumentStatus) bool {
	_, ok := legalTransitions[s]
	return ok
}
