package enums

import "fmt"

// ForwardStatus records the outcome of one forward attempt against the
// downstream record store.
type ForwardStatus string

const (
	ForwardStatusSuccess ForwardStatus = "success"
	ForwardStatusFailed  ForwardStatus = "failed"
	ForwardStatusSkipped ForwardStatus = "skipped"
)

var validForwardStatuses = []ForwardStatus{
	ForwardStatusSuccess,
	ForwardStatusFailed,
	ForwardStatusSkipped,
}

// String implements fmt.Stringer.
func (f ForwardStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known ForwardStatus.
func (f ForwardStatus) IsValid() bool {
	for _, candidate := range validForwardStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseForwardStatus converts raw input into a ForwardStatus.
func ParseForwardStatus(value string) (ForwardStatus, error) {
	for _, candidate := range validForwardStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid forward status %q", value)
}
