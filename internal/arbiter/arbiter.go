// Package arbiter implements the single-slot transmission arbiter: the
// first-wins TX lock with watchdog described in spec.md §4.5. This is the
// heart of the specification — the package is deliberately small and the
// state machine is expressed as a tagged variant (spec.md §9 design notes)
// so that "Idle implies zeroed fields and a stopped watchdog" is a
// type-level invariant (P1 in spec.md §8) rather than a convention callers
// must maintain by hand.
package arbiter

import (
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/cwsl/ysfreflector/internal/clock"
	"github.com/cwsl/ysfreflector/internal/frame"
)

// WatchdogTimeout is the running timeout for an active transmission's
// watchdog (spec.md §4.1: constructed with 0, started with 1500ms).
const WatchdogTimeout = 1500 * time.Millisecond

// Decision is the outcome of feeding one DATA frame to the arbiter.
type Decision int

const (
	// DecisionAcceptStart is an Idle->Active transition; forward the frame.
	DecisionAcceptStart Decision = iota
	// DecisionAcceptContinue is an accepted continuation; forward the frame.
	DecisionAcceptContinue
	// DecisionAcceptEnd is an accepted frame that also closes the stream;
	// forward the frame, then call FinishEnd to return to Idle.
	DecisionAcceptEnd
	// DecisionRejectBlocked means the blocklist vetoed this frame; drop it.
	DecisionRejectBlocked
	// DecisionRejectOverlap means a second transmitter tried to speak over
	// the current one; drop it, state unchanged.
	DecisionRejectOverlap
)

// active holds the fields that exist only while the arbiter is Active. A
// nil active pointer on State means Idle; this is the tagged-variant
// encoding spec.md §9 calls for.
type active struct {
	addr     *net.UDPAddr
	tag      string
	src      string
	dst      string
	txID     string
	watchdog *clock.Timer
}

// State is the transmission arbiter. The zero value is Idle.
type State struct {
	cur *active
}

// IsActive reports whether a transmission currently holds the channel.
func (s *State) IsActive() bool {
	return s.cur != nil
}

// Current returns the owning address, tag, src, dst and correlation ID of
// the active transmission. ok is false when Idle, in which case the other
// return values are zero.
func (s *State) Current() (addr *net.UDPAddr, tag, src, dst, txID string, ok bool) {
	if s.cur == nil {
		return nil, "", "", "", "", false
	}
	return s.cur.addr, s.cur.tag, s.cur.src, s.cur.dst, s.cur.txID, true
}

func (s *State) goIdle() {
	if s.cur != nil {
		s.cur.watchdog.Stop()
	}
	s.cur = nil
}

// Blocker answers whether a source callsign is currently forbidden.
type Blocker interface {
	Check(callsign string) bool
}

// Events carry log-worthy facts a Handle call produced, so the reflector
// loop can emit the exact stable strings from spec.md §6 without the
// arbiter importing a logger.
type Events struct {
	Blocked         bool   // a "Data from SRC at TAG blocked" line should be logged
	BlockedSrc      string
	BlockedTag      string
	Started         bool // a "Transmission from SRC at TAG to TG DST" line should be logged
	Overlap         bool // an "Ignoring overlapping TX from SRC" line should be logged
	OverlapSrc      string
	Ended           bool // a "Received end of transmission..." line should be logged
	WatchdogExpired bool // a "Network watchdog has expired..." line should be logged
	Src, Dst, Tag   string
	TxID            string // correlates this transmission's Started/Ended/WatchdogExpired events
}

// Handle feeds one DATA frame through the arbiter rules of spec.md §4.5, in
// order: blocklist gate, Idle->Active, continuation check, placeholder
// adoption. The end-flag check runs unconditionally on both the Idle->Active
// and continuation paths, since a single frame that both opens and closes a
// transmission still closes it immediately rather than lingering until the
// watchdog. Tearing the state down is left to the caller via FinishEnd
// (forwarding must happen before the end-flag closes the stream, per
// spec.md §4.5 step 6).
func (s *State) Handle(d frame.Data, peer *net.UDPAddr, bl Blocker) (Decision, Events) {
	var ev Events

	blockedBySrc := bl.Check(d.Src)
	blockedByCurrent := s.cur != nil && bl.Check(s.cur.src)
	if blockedBySrc || blockedByCurrent {
		ev.Blocked = true
		ev.BlockedSrc = d.Src
		ev.BlockedTag = d.Tag
		if s.cur != nil {
			s.goIdle()
		}
		return DecisionRejectBlocked, ev
	}

	if s.cur == nil {
		s.cur = &active{
			addr:     peer,
			tag:      d.Tag,
			src:      d.Src,
			dst:      d.Dst,
			txID:     uuid.New().String(),
			watchdog: clock.New(0),
		}
		s.cur.watchdog.StartWith(WatchdogTimeout)
		ev.Started = true
		ev.Src, ev.Tag, ev.Dst = d.Src, d.Tag, d.Dst
		ev.TxID = s.cur.txID
		if d.End {
			ev.Ended = true
			return DecisionAcceptEnd, ev
		}
		return DecisionAcceptStart, ev
	}

	sameTag := d.Tag == s.cur.tag
	samePeer := peer.IP.Equal(s.cur.addr.IP) && peer.Port == s.cur.addr.Port
	if !sameTag || !samePeer {
		ev.Overlap = true
		ev.OverlapSrc = d.Src
		return DecisionRejectOverlap, ev
	}

	if s.cur.src == frame.Unknown && d.Src != frame.Unknown {
		s.cur.src = d.Src
	}
	if s.cur.dst == frame.Unknown && d.Dst != frame.Unknown {
		s.cur.dst = d.Dst
	}

	decision := DecisionAcceptContinue
	if d.End {
		decision = DecisionAcceptEnd
		ev.Ended = true
		ev.Src, ev.Tag, ev.Dst = s.cur.src, s.cur.tag, s.cur.dst
		ev.TxID = s.cur.txID
	}
	return decision, ev
}

// FinishEnd transitions the arbiter to Idle after the caller has forwarded
// an Accept-End frame. Separated from Handle because forwarding must occur
// before the stream's state is torn down (spec.md §4.5 step 5 then 6).
func (s *State) FinishEnd() {
	s.goIdle()
}

// TickWatchdog advances the active transmission's watchdog, if any, and
// reports whether it just expired. On expiry the arbiter transitions to
// Idle and the caller should log the "watchdog has expired" line using the
// returned src/tag/dst.
func (s *State) TickWatchdog(elapsed time.Duration) (expired bool, src, tag, dst, txID string) {
	if s.cur == nil {
		return false, "", "", "", ""
	}
	s.cur.watchdog.Tick(elapsed)
	if !s.cur.watchdog.Expired() {
		return false, "", "", "", ""
	}
	src, tag, dst, txID = s.cur.src, s.cur.tag, s.cur.dst, s.cur.txID
	s.goIdle()
	return true, src, tag, dst, txID
}
