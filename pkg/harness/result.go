/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: result.go
Description: Explicit outcome type for harness invocations. Adapters never signal failure
to their caller, but the outcome is recorded so tests can see where an input stopped.
*/

package harness

import "fmt"

// Outcome classifies how a target invocation ended.
type Outcome int

const (
	// Completed means the core target operation ran.
	Completed Outcome = iota
	// Rejected means a resource-acquiring call failed and the adapter
	// short-circuited; the input was malformed for this target.
	Rejected
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// StageProbes is reported when the probe selection could not be loaded.
const StageProbes = "load-probes"

// Result is what a Target reports for one input.
type Result struct {
	Outcome Outcome
	Stage   string // stage that rejected the input, empty when completed
	Err     error  // error returned by the target at Stage, if any
	Detail  string // target-specific summary, e.g. the demangled name
}

// Complete returns a Completed result.
func Complete(detail string) Result {
	return Result{Outcome: Completed, Detail: detail}
}

// Reject returns a Rejected result for stage.
func Reject(stage string, err error) Result {
	return Result{Outcome: Rejected, Stage: stage, Err: err}
}

// OK reports whether the core operation ran.
func (r Result) OK() bool { return r.Outcome == Completed }
