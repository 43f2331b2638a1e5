// Package event provides synchronous, typed observer lists.
//
// A Signal delivers each Emit to every subscriber in subscription order
// before returning. Delivery iterates a snapshot, so handlers may subscribe
// or unsubscribe (themselves or others) while an Emit is in flight: new
// subscribers are not called for the current emit, removed ones are skipped.
package event

// Token identifies one subscription. The zero Token is never issued.
type Token uint64

type subscriber[T any] struct {
	token   Token
	fn      func(T)
	removed bool
}

// Signal is a single-goroutine observer list for events of type T.
// The zero value is ready to use.
type Signal[T any] struct {
	subs []*subscriber[T]
	next Token
}

// Subscribe registers fn and returns the token that removes it.
func (s *Signal[T]) Subscribe(fn func(T)) Token {
	s.next++
	s.subs = append(s.subs, &subscriber[T]{token: s.next, fn: fn})
	return s.next
}

// Unsubscribe removes the subscription. Unknown or already removed tokens
// report false.
func (s *Signal[T]) Unsubscribe(tok Token) bool {
	if s == nil {
		return false
	}
	for i, sub := range s.subs {
		if sub.token == tok {
			sub.removed = true
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls every current subscriber with v.
func (s *Signal[T]) Emit(v T) {
	if s == nil || len(s.subs) == 0 {
		return
	}
	snapshot := make([]*subscriber[T], len(s.subs))
	copy(snapshot, s.subs)
	for _, sub := range snapshot {
		if sub.removed {
			continue
		}
		sub.fn(v)
	}
}

// Len returns the number of live subscriptions.
func (s *Signal[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.subs)
}

// Subscriptions collects cancel funcs so an owner can drop every
// registration in one call on teardown.
type Subscriptions struct {
	cancels []func()
}

// Add records a cancel func.
func (g *Subscriptions) Add(cancel func()) {
	g.cancels = append(g.cancels, cancel)
}

// Cancel runs every recorded cancel func once, newest first.
func (g *Subscriptions) Cancel() {
	for i := len(g.cancels) - 1; i >= 0; i-- {
		g.cancels[i]()
	}
	g.cancels = nil
}

// Len returns the number of registrations still held.
func (g *Subscriptions) Len() int { return len(g.cancels) }

// Bind subscribes fn to s and records the cancellation in g.
func Bind[T any](g *Subscriptions, s *Signal[T], fn func(T)) Token {
	tok := s.Subscribe(fn)
	g.Add(func() { s.Unsubscribe(tok) })
	return tok
}
