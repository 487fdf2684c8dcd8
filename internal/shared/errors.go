package shared

import (
	"errors"
	"fmt"
)

// RequestError is used when we want a specific error message and StatusCode.
// The extraction routes answer 200 for every runtime failure, so the only
// request errors that reach a client are malformed bodies and panics.
type RequestError struct {
	StatusCode int
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: err %v", r.StatusCode, r.Err)
}

func (r *RequestError) Unwrap() error {
	return r.Err
}

var (
	ErrInvalidRequest      = &RequestError{Err: errors.New("invalid request body"), StatusCode: 400}
	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500}
)

// MetricsError carries a short code used as a metrics label next to the
// human readable message.
type MetricsError struct {
	Msg  string
	Code string
}

func (m *MetricsError) Error() string {
	return m.String()
}

func (m *MetricsError) String() string {
	return m.Msg
}

var (
	ErrRuntimeLaunch   = &MetricsError{Msg: "failed to launch model runtime", Code: "launch_err"}
	ErrRuntimeExit     = &MetricsError{Msg: "model runtime exited non-zero", Code: "exit_err"}
	ErrRuntimeTimeout  = &MetricsError{Msg: "model runtime timed out", Code: "timeout_err"}
	ErrProvisionFailed = &MetricsError{Msg: "model provisioning failed", Code: "provision_err"}
	ErrNotReady        = &MetricsError{Msg: "model not listed after provisioning", Code: "not_ready_err"}
	ErrRunSlot         = &MetricsError{Msg: "canceled waiting for a run slot", Code: "run_slot_err"}
)
