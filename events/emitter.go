// Package events implements the engine's pub/sub extension point: a
// colon-segmented topic emitter with wildcard patterns, used for audit,
// notification delivery, and usage metering listeners.
package events

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/authcore-dev/authcore/logging"
)

// Listener receives an emitted payload. Returning an error does not abort
// the emission; it is logged and otherwise swallowed.
type Listener func(ctx context.Context, topic string, payload any) error

// Subscription identifies one registered listener for removal via Off.
type Subscription struct {
	id      uint64
	pattern string
}

type registration struct {
	id       uint64
	segments []string
	fn       Listener
}

// Emitter dispatches payloads to listeners registered on exact topics or
// wildcard patterns. Any segment of a pattern may be "*", and the single
// pattern "*" matches every topic. Registration order is preserved:
// matching listeners run for every emit, but pattern evaluation is
// first-registered-first.
//
// All methods are safe for concurrent use.
type Emitter struct {
	mu     sync.RWMutex
	nextID uint64
	regs   []registration
	log    logging.Logger
}

// New returns an Emitter logging listener failures to log. A nil log
// discards them.
func New(log logging.Logger) *Emitter {
	if log == nil {
		log = logging.Nop{}
	}
	return &Emitter{log: log}
}

// On registers fn for pattern and returns its Subscription.
func (e *Emitter) On(pattern string, fn Listener) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	e.regs = append(e.regs, registration{
		id:       e.nextID,
		segments: strings.Split(pattern, ":"),
		fn:       fn,
	})

	return Subscription{id: e.nextID, pattern: pattern}
}

// Off removes the listener identified by sub. Removing an unknown
// subscription is a no-op.
func (e *Emitter) Off(sub Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, reg := range e.regs {
		if reg.id == sub.id {
			e.regs = append(e.regs[:i], e.regs[i+1:]...)
			return
		}
	}
}

// Emit dispatches payload to every listener whose pattern matches topic.
// Listeners run concurrently; Emit returns once all of them have. A
// panicking or failing listener is logged and never aborts the emission.
func (e *Emitter) Emit(ctx context.Context, topic string, payload any) {
	segments := strings.Split(topic, ":")

	e.mu.RLock()
	matched := make([]Listener, 0, len(e.regs))
	for _, reg := range e.regs {
		if patternMatches(reg.segments, segments) {
			matched = append(matched, reg.fn)
		}
	}
	e.mu.RUnlock()

	if len(matched) == 0 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(matched))
	for _, fn := range matched {
		go func(fn Listener) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.log.Error(ctx, "event listener panic",
						"topic", topic, "panic", fmt.Sprint(r))
				}
			}()
			if err := fn(ctx, topic, payload); err != nil {
				e.log.Error(ctx, "event listener failed",
					"topic", topic, "error", err)
			}
		}(fn)
	}
	wg.Wait()
}

// patternMatches compares a registered pattern against topic segments.
// The bare pattern "*" matches everything; otherwise segment counts must
// agree and each pattern segment is a literal or "*".
func patternMatches(pattern, topic []string) bool {
	if len(pattern) == 1 && pattern[0] == "*" {
		return true
	}
	if len(pattern) != len(topic) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != topic[i] {
			return false
		}
	}
	return true
}
