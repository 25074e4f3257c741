package forecast

import "fmt"

// InsufficientHistoryError is returned when fewer cleaned bars are available
// than the requested model needs. The caller can recover by supplying more history.
type InsufficientHistoryError struct {
	Model string
	Need  int
	Have  int
	Err   error
}

func (e InsufficientHistoryError) Error() string {
	msg := fmt.Sprintf("%s needs at least %d daily bars, got %d", e.Model, e.Need, e.Have)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e InsufficientHistoryError) Unwrap() error { return e.Err }

// DataQualityError is returned when cleaning leaves no usable rows.
type DataQualityError struct {
	Reason string
}

func (e DataQualityError) Error() string {
	return fmt.Sprintf("unusable price data: %s", e.Reason)
}

// ComputationError wraps a numerical fitting failure.
type ComputationError struct {
	Stage string
	Err   error
}

func (e ComputationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e ComputationError) Unwrap() error {
	return e.Err
}
