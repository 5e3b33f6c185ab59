package parbreak

import (
	"fmt"

	"github.com/google/uuid"
)

// JobID distinguishes a Job from all others known to a coordinator.
// On the wire it round-trips as the canonical brace-wrapped hyphenated
// UUID form, eg "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}".
type JobID string

// NewJobID mints a fresh, unique JobID.
func NewJobID() JobID {
	return JobID(braced(uuid.New()))
}

// String implements fmt.Stringer.
func (id JobID) String() string {
	return string(id)
}

// Valid reports whether id refers to a job, as opposed to the zero value
// used to mean "no job".
func (id JobID) Valid() bool {
	return id != ""
}

func braced(u uuid.UUID) string {
	return fmt.Sprintf("{%s}", u.String())
}

// parseJobID validates that s is a well-formed braced UUID and returns it
// as a JobID. Malformed ids are rejected rather than silently accepted,
// since they can never match a real job.
func parseJobID(s string) (JobID, error) {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return "", fmt.Errorf("job id missing braces: %q", s)
	}
	inner := s[1 : len(s)-1]
	if _, err := uuid.Parse(inner); err != nil {
		return "", fmt.Errorf("job id not a uuid: %w", err)
	}
	return JobID(s), nil
}
