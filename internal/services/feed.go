package services

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Snapshot is the full contents of one scope at a point in time
type Snapshot struct {
	Scope      string `json:"scope"`
	Collection string `json:"collection"`
	// Initial marks the first snapshot a subscription receives
	Initial bool `json:"initial"`
	Records any  `json:"records"`
	Summary any  `json:"summary,omitempty"`
}

// Feed fans snapshots out to the subscriptions of each scope
type Feed struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewFeed creates an empty feed
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription is a handle on a live scope. Snapshots arrive on the channel
// returned by Snapshots until Close is called or the session ends.
type Subscription struct {
	feed      *Feed
	scope     string
	sessionID string

	mu     sync.Mutex
	ch     chan Snapshot
	closed bool
}

// Subscribe registers a subscription on scope for the given session
func (f *Feed) Subscribe(scope, sessionID string) *Subscription {
	sub := &Subscription{
		feed:      f,
		scope:     scope,
		sessionID: sessionID,
		ch:        make(chan Snapshot, 1),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[scope] == nil {
		f.subs[scope] = make(map[*Subscription]struct{})
	}
	f.subs[scope][sub] = struct{}{}

	log.Debug().Str("scope", scope).Str("session_id", sessionID).Msg("Feed subscription opened")
	return sub
}

// Publish delivers snap to every subscription on snap.Scope
func (f *Feed) Publish(snap Snapshot) {
	f.mu.Lock()
	targets := make([]*Subscription, 0, len(f.subs[snap.Scope]))
	for sub := range f.subs[snap.Scope] {
		targets = append(targets, sub)
	}
	f.mu.Unlock()

	for _, sub := range targets {
		sub.offer(snap)
	}
}

// CloseSession closes every subscription opened under sessionID
func (f *Feed) CloseSession(sessionID string) int {
	f.mu.Lock()
	var targets []*Subscription
	for _, set := range f.subs {
		for sub := range set {
			if sub.sessionID == sessionID {
				targets = append(targets, sub)
			}
		}
	}
	f.mu.Unlock()

	for _, sub := range targets {
		sub.Close()
	}
	return len(targets)
}

// Subscribers returns the number of open subscriptions on scope
func (f *Feed) Subscribers(scope string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[scope])
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if set, ok := f.subs[sub.scope]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(f.subs, sub.scope)
		}
	}
}

// Snapshots returns the delivery channel. It is closed by Close.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.ch
}

// Scope returns the scope path the subscription listens on
func (s *Subscription) Scope() string {
	return s.scope
}

// Closed reports whether the subscription has stopped delivering
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.feed.remove(s)
	log.Debug().Str("scope", s.scope).Str("session_id", s.sessionID).Msg("Feed subscription closed")
}

// offer hands snap to the subscriber without blocking. A snapshot still
// waiting to be read is replaced, since every snapshot carries full state.
func (s *Subscription) offer(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- snap:
		return
	default:
	}

	select {
	case stale := <-s.ch:
		if stale.Initial {
			snap.Initial = true
		}
	default:
	}
	s.ch <- snap
}

// FollowSessions closes a session's subscriptions when the gate signs it out
func (f *Feed) FollowSessions(gate *SessionGate) {
	gate.OnChange(func(ev SessionEvent) {
		if ev.Kind != SessionSignedOut {
			return
		}
		if n := f.CloseSession(ev.Session.ID); n > 0 {
			log.Info().Str("session_id", ev.Session.ID).Int("subscriptions", n).Msg("Closed subscriptions of ended session")
		}
	})
}
