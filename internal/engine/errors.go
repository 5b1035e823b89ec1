package engine

import (
	"errors"
	"fmt"

	"offerlens/internal/model"
)

// MalformedEventError reports an event that lacks a field its kind requires,
// or that breaks the per-customer ordering the scan relies on.
type MalformedEventError struct {
	CustomerID  string
	GlobalIndex int
	Kind        model.EventKind
	Reason      string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event %d (customer %q, kind %q): %s", e.GlobalIndex, e.CustomerID, e.Kind, e.Reason)
}

// UnknownCustomerPartitionError reports an event whose customer is not in the
// registry the run was started with.
type UnknownCustomerPartitionError struct {
	CustomerID  string
	GlobalIndex int
}

func (e *UnknownCustomerPartitionError) Error() string {
	return fmt.Sprintf("event %d references unknown customer %q", e.GlobalIndex, e.CustomerID)
}

func toCustomerError(customerID string, err error) model.CustomerError {
	out := model.CustomerError{CustomerID: customerID, GlobalIndex: -1, Message: err.Error()}
	var malformed *MalformedEventError
	var unknown *UnknownCustomerPartitionError
	switch {
	case errors.As(err, &malformed):
		out.Kind = "malformed_event"
		out.GlobalIndex = malformed.GlobalIndex
	case errors.As(err, &unknown):
		out.Kind = "unknown_customer"
		out.GlobalIndex = unknown.GlobalIndex
	default:
		out.Kind = "internal"
	}
	return out
}
