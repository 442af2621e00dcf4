package motionplan

import (
	"context"
	"time"

	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
)

// TerminationToken is a shared stop flag checked at the top of every planner loop. A child token
// reports termination when it or any ancestor is set; setting a child never affects its parent.
type TerminationToken struct {
	flag   *atomic.Bool
	parent *TerminationToken
}

// NewTerminationToken returns an unset token.
func NewTerminationToken() *TerminationToken {
	return &TerminationToken{flag: atomic.NewBool(false)}
}

// Child returns a token that also observes t.
func (t *TerminationToken) Child() *TerminationToken {
	return &TerminationToken{flag: atomic.NewBool(false), parent: t}
}

// GetTerminate reports whether this token or an ancestor has been set. A nil token never terminates.
func (t *TerminationToken) GetTerminate() bool {
	for cur := t; cur != nil; cur = cur.parent {
		if cur.flag.Load() {
			return true
		}
	}
	return false
}

// SetToTerminate sets the token.
func (t *TerminationToken) SetToTerminate() {
	t.flag.Store(true)
}

// TerminateAfter sets the token once d has elapsed. The returned function cancels the watcher.
func (t *TerminationToken) TerminateAfter(d time.Duration) func() {
	timer := time.AfterFunc(d, t.SetToTerminate)
	return func() { timer.Stop() }
}

// WatchContext sets the token when ctx is done. The returned function stops watching.
func (t *TerminationToken) WatchContext(ctx context.Context) func() {
	done := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		select {
		case <-ctx.Done():
			t.SetToTerminate()
		case <-done:
		}
	})
	return func() { close(done) }
}
