// Package selection is the overlay that lets a content module temporarily
// repurpose the dial+button as a generic menu input. While a session is
// active, the next button tap is delivered here as "submit dial position"
// instead of the normal print action.
package selection

import (
	"sync"

	"github.com/travmiller/paper-console-sub000/log2"
)

type SelectFunc func(position uint8)

// Mode holds at most one active session. Enter always supersedes the
// previous owner, it never stacks; nested flows must re-enter explicitly.
type Mode struct {
	log   *log2.Log
	mu    sync.Mutex
	fn    SelectFunc
	owner string
}

func New(log *log2.Log) *Mode { return &Mode{log: log} }

func (self *Mode) Enter(owner string, fn SelectFunc) {
	self.mu.Lock()
	if self.owner != "" && self.owner != owner {
		self.log.Infof("selection owner=%s superseded by=%s", self.owner, owner)
	}
	self.owner = owner
	self.fn = fn
	self.mu.Unlock()
}

func (self *Mode) Exit() {
	self.mu.Lock()
	self.owner = ""
	self.fn = nil
	self.mu.Unlock()
}

// ExitOwner clears the session only when owner still holds it. Timeout tasks
// use this so a late expiry does not tear down somebody else's session.
func (self *Mode) ExitOwner(owner string) bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.owner != owner {
		return false
	}
	self.owner = ""
	self.fn = nil
	return true
}

func (self *Mode) Owner() string {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.owner
}

func (self *Mode) Active() bool { return self.Owner() != "" }

// Dispatch delivers position to the active session. Returns false when no
// session is active. A panicking callback is logged and its session cleared,
// the device must not stay stuck in a broken interactive state.
func (self *Mode) Dispatch(position uint8) (consumed bool) {
	self.mu.Lock()
	fn := self.fn
	owner := self.owner
	self.mu.Unlock()
	if fn == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			self.log.Errorf("selection owner=%s position=%d panic: %v", owner, position, r)
			self.ExitOwner(owner)
		}
	}()
	fn(position)
	return true
}
