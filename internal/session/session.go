// Package session holds the Client Facade's observable state —
// CastStatus, CastMediaStatus, CastMultizoneStatus, and the connected
// app — and suppresses duplicate notifications when a receiver
// rebroadcasts status that hasn't actually changed.
package session

import (
	"reflect"
	"sync"

	"github.com/scobuck/CastKit/internal/types"
)

// State tracks the Client Facade's session-scoped fields. Every status
// setter compares the new value against the previous one with
// reflect.DeepEqual (SetConnectedApp uses CastApp.Equal instead) and
// only invokes its callback when the value actually changed, so a
// receiver rebroadcasting identical status doesn't spam observers.
// Reads return a snapshot;
// writes and reads are both safe for concurrent use, but callbacks are
// invoked synchronously from the setter's caller — callers that need
// the "serialized UI context" ordering guarantee must call these
// setters only from that context, which is how the Client Facade uses
// this type.
type State struct {
	mu sync.RWMutex

	status         *types.CastStatus
	mediaStatus    *types.CastMediaStatus
	multizoneStatus *types.CastMultizoneStatus
	connectedApp   *types.CastApp

	onStatus      func(types.CastStatus)
	onMediaStatus func(types.CastMediaStatus)
	onMultizone   func(types.CastMultizoneStatus)
	onApp         func(*types.CastApp)
}

// New returns an empty State with no observers wired yet.
func New() *State {
	return &State{}
}

// OnStatus registers the callback invoked when CastStatus changes.
func (s *State) OnStatus(fn func(types.CastStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = fn
}

// OnMediaStatus registers the callback invoked when CastMediaStatus changes.
func (s *State) OnMediaStatus(fn func(types.CastMediaStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMediaStatus = fn
}

// OnMultizoneStatus registers the callback invoked when CastMultizoneStatus changes.
func (s *State) OnMultizoneStatus(fn func(types.CastMultizoneStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMultizone = fn
}

// OnConnectedApp registers the callback invoked when the connected app changes.
func (s *State) OnConnectedApp(fn func(*types.CastApp)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onApp = fn
}

// SetStatus updates CastStatus, notifying the observer only if it
// differs structurally from the previous value.
func (s *State) SetStatus(v types.CastStatus) {
	s.mu.Lock()
	if s.status != nil && reflect.DeepEqual(*s.status, v) {
		s.mu.Unlock()
		return
	}
	s.status = &v
	cb := s.onStatus
	s.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

// Status returns the current CastStatus and whether one has been observed yet.
func (s *State) Status() (types.CastStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status == nil {
		return types.CastStatus{}, false
	}
	return *s.status, true
}

// SetMediaStatus updates CastMediaStatus, notifying the observer only
// if it differs structurally from the previous value. ObservedAtUnixNano
// is stamped fresh on every receipt and excluded from that comparison,
// otherwise a receiver rebroadcasting identical status would never
// dedup.
func (s *State) SetMediaStatus(v types.CastMediaStatus) {
	s.mu.Lock()
	if s.mediaStatus != nil {
		prev := *s.mediaStatus
		cur := v
		prev.ObservedAtUnixNano = 0
		cur.ObservedAtUnixNano = 0
		if reflect.DeepEqual(prev, cur) {
			s.mu.Unlock()
			return
		}
	}
	s.mediaStatus = &v
	cb := s.onMediaStatus
	s.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

// MediaStatus returns the current CastMediaStatus and whether one has been observed yet.
func (s *State) MediaStatus() (types.CastMediaStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mediaStatus == nil {
		return types.CastMediaStatus{}, false
	}
	return *s.mediaStatus, true
}

// SetMultizoneStatus updates CastMultizoneStatus, notifying the
// observer only if it differs structurally from the previous value.
func (s *State) SetMultizoneStatus(v types.CastMultizoneStatus) {
	s.mu.Lock()
	if s.multizoneStatus != nil && reflect.DeepEqual(*s.multizoneStatus, v) {
		s.mu.Unlock()
		return
	}
	s.multizoneStatus = &v
	cb := s.onMultizone
	s.mu.Unlock()
	if cb != nil {
		cb(v)
	}
}

// MultizoneStatus returns the current CastMultizoneStatus and whether one has been observed yet.
func (s *State) MultizoneStatus() (types.CastMultizoneStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.multizoneStatus == nil {
		return types.CastMultizoneStatus{}, false
	}
	return *s.multizoneStatus, true
}

// SetConnectedApp updates the connected app. A nil app clears it.
// Equality is by CastApp.Equal (SessionID): an equal app replaces the
// stored value (refreshing fields such as StatusText) without notifying.
func (s *State) SetConnectedApp(app *types.CastApp) {
	s.mu.Lock()
	if s.connectedApp == nil && app == nil {
		s.mu.Unlock()
		return
	}
	if s.connectedApp != nil && app != nil && s.connectedApp.Equal(*app) {
		s.connectedApp = app
		s.mu.Unlock()
		return
	}
	s.connectedApp = app
	cb := s.onApp
	s.mu.Unlock()
	if cb != nil {
		cb(app)
	}
}

// ConnectedApp returns the currently connected app, or nil.
func (s *State) ConnectedApp() *types.CastApp {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connectedApp
}

// Clear resets status, media status, multizone status, and the
// connected app to unobserved/nil — used on any transition to
// Disconnected, per the connection state machine. Clearing does not
// fire observer callbacks; a fresh connect starts from a blank slate.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = nil
	s.mediaStatus = nil
	s.multizoneStatus = nil
	s.connectedApp = nil
}
