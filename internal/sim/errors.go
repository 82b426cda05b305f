package sim

import (
	"fmt"
	"strings"
)

// ValidationError reports every violation found while resolving a scenario
// configuration, not just the first, so a caller can fix a template in one
// round trip.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scenario configuration (%d violation(s)): %s",
		len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *ValidationError) add(format string, args ...interface{}) {
	e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
}

// UnknownTreatmentError indicates a treatment id referenced at simulation
// time is absent from the catalog. It is fatal for the whole run: the
// configuration and catalog disagree, so no patient outcome is trustworthy.
type UnknownTreatmentError struct {
	ID string
}

func (e *UnknownTreatmentError) Error() string {
	return fmt.Sprintf("treatment %q is not in the treatment catalog", e.ID)
}
