package enums

import "fmt"

// ReturnStatus tracks a return request through its workflow.
type ReturnStatus string

const (
	ReturnStatusRequested       ReturnStatus = "requested"
	ReturnStatusApproved        ReturnStatus = "approved"
	ReturnStatusPickupScheduled ReturnStatus = "pickup_scheduled"
	ReturnStatusReceived        ReturnStatus = "received"
	ReturnStatusQCPass          ReturnStatus = "qc_pass"
	ReturnStatusQCFail          ReturnStatus = "qc_fail"
	ReturnStatusRefunded        ReturnStatus = "refunded"
	ReturnStatusRejected        ReturnStatus = "rejected"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusApproved,
	ReturnStatusPickupScheduled,
	ReturnStatusReceived,
	ReturnStatusQCPass,
	ReturnStatusQCFail,
	ReturnStatusRefunded,
	ReturnStatusRejected,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the return workflow is finished.
func (r ReturnStatus) IsTerminal() bool {
	return r == ReturnStatusRefunded || r == ReturnStatusRejected
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
