package zkproto

import "fmt"

// ConnectionError reports a failure to open or handshake the device transport.
// It is fatal for the whole sync run.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("device connection to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports that the device kept timing out after all retries.
// These clocks choke on large log volumes, so the message carries operator guidance.
type TimeoutError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("device %s timed out after %d attempts: %v (device may have too many logs; clear logs first)",
		e.Op, e.Attempts, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// UnexpectedResponseError reports a device payload that matched none of the
// known envelope shapes. Usually a firmware / bridge version mismatch.
type UnexpectedResponseError struct {
	Detail string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected device response format: %s", e.Detail)
}
