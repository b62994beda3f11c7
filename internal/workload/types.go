package workload

import (
	"fmt"
	"time"
)

// Kind is the category of a simulated failure
type Kind int

const (
	DatabaseCrash Kind = iota
	NetworkError
	InvalidRequest
	Timeout
	InternalServerError
	UnknownError
)

// Kinds lists every failure kind in draw order
var Kinds = []Kind{
	DatabaseCrash,
	NetworkError,
	InvalidRequest,
	Timeout,
	InternalServerError,
	UnknownError,
}

var kindNames = map[Kind]string{
	DatabaseCrash:       "DB Crashed",
	NetworkError:        "Network Error",
	InvalidRequest:      "Invalid Request",
	Timeout:             "Timeout",
	InternalServerError: "Internal Server Error",
	UnknownError:        "Unknown Error",
}

// String returns the human readable failure message
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Result is the outcome of a successful run
type Result struct {
	ElapsedMs int
}

// Elapsed returns the simulated duration
func (r Result) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMs) * time.Millisecond
}

// Failure is returned when a run draws the failure branch
type Failure struct {
	Kind      Kind
	ElapsedMs int
}

// Error implements the error interface
func (f *Failure) Error() string {
	return fmt.Sprintf("simulated workload failure: %s", f.Kind)
}
