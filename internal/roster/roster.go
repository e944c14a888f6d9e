// Package roster tracks registered repeater endpoints: one entry per peer
// address, each carrying its adopted callsign and a 60s silence timer.
// Grounded on spec.md §4.4; the "heap-owned node, delete on eviction"
// pattern from the original source (§9 design notes) is replaced with a
// value slice owned directly by the Roster, as the design notes recommend.
package roster

import (
	"net"
	"time"

	"github.com/cwsl/ysfreflector/internal/clock"
	"github.com/cwsl/ysfreflector/internal/transport"
)

// SilenceTimeout is how long an endpoint may go without sending any packet
// before it is evicted (spec.md §3).
const SilenceTimeout = 60 * time.Second

// Endpoint is one registered repeater.
type Endpoint struct {
	Addr     *net.UDPAddr
	Callsign string
	silence  *clock.Timer
}

// Roster holds the set of currently registered endpoints, keyed internally
// by address for O(1) lookup while preserving insertion order for
// iteration and logging.
type Roster struct {
	order []string // transport.Key(Addr), insertion order
	byKey map[string]*Endpoint
}

// New returns an empty roster.
func New() *Roster {
	return &Roster{byKey: map[string]*Endpoint{}}
}

// Find returns the endpoint registered at addr, or nil if none.
func (r *Roster) Find(addr *net.UDPAddr) *Endpoint {
	return r.byKey[transport.Key(addr)]
}

// Insert registers a new endpoint. Callers must first confirm Find(addr) is
// nil — Insert does not itself guard against duplicate addresses, matching
// spec.md §4.4's "pre-condition caller verified find(addr) == None".
func (r *Roster) Insert(addr *net.UDPAddr, callsign string) *Endpoint {
	key := transport.Key(addr)
	e := &Endpoint{
		Addr:     addr,
		Callsign: callsign,
		silence:  clock.New(SilenceTimeout),
	}
	e.silence.Start()
	r.byKey[key] = e
	r.order = append(r.order, key)
	return e
}

// RemoveByAddr removes the endpoint at addr, if any. No-op if absent.
func (r *Roster) RemoveByAddr(addr *net.UDPAddr) {
	r.remove(transport.Key(addr))
}

func (r *Roster) remove(key string) {
	if _, ok := r.byKey[key]; !ok {
		return
	}
	delete(r.byKey, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// RestartSilence restarts e's silence timer; called on every inbound packet
// from e (spec.md §3).
func (e *Endpoint) RestartSilence() {
	e.silence.Start()
}

// TickAll advances every endpoint's silence timer by elapsed.
func (r *Roster) TickAll(elapsed time.Duration) {
	for _, e := range r.byKey {
		e.silence.Tick(elapsed)
	}
}

// EvictExpired removes every endpoint whose silence timer has expired,
// invoking onEvict for each one before removal so the caller can log and
// update derived state (e.g. the outbound POLL status count) exactly once
// per eviction. Iteration is index-based over a point-in-time snapshot of
// the insertion order so removal during the walk is safe.
func (r *Roster) EvictExpired(onEvict func(*Endpoint)) {
	snapshot := make([]string, len(r.order))
	copy(snapshot, r.order)
	for _, key := range snapshot {
		e, ok := r.byKey[key]
		if !ok || !e.silence.Expired() {
			continue
		}
		onEvict(e)
		r.remove(key)
	}
}

// Size returns the number of registered endpoints.
func (r *Roster) Size() int {
	return len(r.order)
}

// Each calls fn for every endpoint in insertion order without allocating,
// for forwarding fan-out (spec.md §4.4, §4.6).
func (r *Roster) Each(fn func(*Endpoint)) {
	for _, key := range r.order {
		if e, ok := r.byKey[key]; ok {
			fn(e)
		}
	}
}
