// Package jobref models a reference to long-running external work: an opaque
// handle returned by a dispatch call plus the last known tri-state outcome.
// The reference is persisted on the owning entity before dispatch returns, so
// a later request — possibly on another instance — can pick the work up by
// handle alone. Dispatch and resolution never share memory.
package jobref

import "fmt"

type State string

const (
	Processing State = "processing"
	Succeeded  State = "succeeded"
	Failed     State = "failed"
	// Abandoned означает "больше не отслеживаем", а не "работа остановлена".
	Abandoned State = "abandoned"
)

// Ref is one tracked unit of external work. Target is the durable output
// location the work writes to; it doubles as the dedup key for dispatch.
type Ref struct {
	Handle string `json:"handle"`
	Target string `json:"target"`
	State  State  `json:"state"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Outcome is the normalized result of polling the external collaborator.
// Output may be empty even when State is Succeeded ("done, nothing produced");
// callers must not collapse that case into either Processing or Failed.
type Outcome struct {
	State  State
	Output string
	Err    string
}

// Outstanding reports whether the reference blocks a new dispatch for the
// same target: a handle is live while it is still processing or has already
// succeeded. Failed and abandoned references may be replaced.
func (r *Ref) Outstanding() bool {
	if r == nil || r.Handle == "" {
		return false
	}
	return r.State == Processing || r.State == Succeeded
}

func (r *Ref) Terminal() bool {
	if r == nil {
		return false
	}
	return r.State == Succeeded || r.State == Failed || r.State == Abandoned
}

// CheckDispatch rejects a dispatch against a target that already has a live
// reference. prior may be nil.
func CheckDispatch(prior *Ref, target string) error {
	if prior.Outstanding() && prior.Target == target {
		return fmt.Errorf("job for %q already %s under handle %s", target, prior.State, prior.Handle)
	}
	return nil
}

// New records a freshly dispatched handle. The caller must persist the
// returned reference before reporting the dispatch as done.
func New(handle, target string) *Ref {
	return &Ref{Handle: handle, Target: target, State: Processing}
}

// Resolve applies a terminal outcome to the reference exactly once and
// reports whether anything changed. Resolving an already-terminal reference
// is a no-op: polling is driven by an untrusted, possibly-retrying client.
func (r *Ref) Resolve(out Outcome) bool {
	if r == nil || r.Terminal() {
		return false
	}
	switch out.State {
	case Succeeded:
		r.State = Succeeded
		r.Output = out.Output
		return true
	case Failed:
		r.State = Failed
		r.Error = out.Err
		return true
	default:
		return false
	}
}

// Abandon drops tracking of the handle locally. The external work is not
// guaranteed to stop.
func (r *Ref) Abandon() bool {
	if r == nil || r.Handle == "" || r.Terminal() {
		return false
	}
	r.State = Abandoned
	return true
}
