package consensus

import "github.com/tolelom/dancore/core"

// Pacemaker drives view and height progression and leader-failure timers
// (spec.md §4.5 C5). It is an external actor driven by its own timer loop;
// the core only calls UpdateView, never blocks on it.
type Pacemaker interface {
	// UpdateView is idempotent and monotonic: calling it twice with the
	// same or a lower (newHeight, highQcHeight) pair must not regress
	// internal timers.
	UpdateView(newHeight, highQcHeight core.NodeHeight)
}

// NoopPacemaker discards every view update; the default when no pacemaker
// is wired in (e.g. single-shot validation tests).
type NoopPacemaker struct{}

func (NoopPacemaker) UpdateView(core.NodeHeight, core.NodeHeight) {}

// RecordingPacemaker is a test double that remembers the last view update
// it was given, for assertions in handler tests.
type RecordingPacemaker struct {
	LastHeight      core.NodeHeight
	LastHighQcHeight core.NodeHeight
	Calls           int
}

func (p *RecordingPacemaker) UpdateView(newHeight, highQcHeight core.NodeHeight) {
	p.LastHeight = newHeight
	p.LastHighQcHeight = highQcHeight
	p.Calls++
}
