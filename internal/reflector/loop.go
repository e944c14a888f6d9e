// Package reflector implements the single cooperative event loop described
// in spec.md §4.6 and §5: one thread dispatching inbound packets, advancing
// timers, applying arbitration and blocking, forwarding payloads, and
// emitting housekeeping events. Grounded on the original C++ reflector's
// for(;;) loop (original_source/YSFReflector/YSFReflector.cpp) for ordering
// and on the teacher's broadcaster-loop style (decoder_wsjtx_udp.go) for how
// a Go rewrite structures a similar poll/tick/sleep cycle.
package reflector

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/cwsl/ysfreflector/internal/arbiter"
	"github.com/cwsl/ysfreflector/internal/blocklist"
	"github.com/cwsl/ysfreflector/internal/clock"
	"github.com/cwsl/ysfreflector/internal/frame"
	"github.com/cwsl/ysfreflector/internal/geo"
	"github.com/cwsl/ysfreflector/internal/metrics"
	"github.com/cwsl/ysfreflector/internal/notify"
	"github.com/cwsl/ysfreflector/internal/roster"
	"github.com/cwsl/ysfreflector/internal/status"
	"github.com/cwsl/ysfreflector/internal/transport"
)

const (
	pollInterval = 5 * time.Second
	dumpInterval = 120 * time.Second

	// minIterationTime caps the busy-loop rate at ~200Hz when idle
	// (spec.md §4.6 step 9).
	minIterationTime = 5 * time.Millisecond
)

// talkGroup is the fixed talk group the dump log reports, matching the
// original reflector's hardcoded "TG 226" — the reflector does not filter
// by talk group (spec.md glossary), it only logs it.
const talkGroup = "226"

// Loop is the reflector's single thread of control.
type Loop struct {
	ep       *transport.Endpoint
	callsign string

	roster *roster.Roster
	arb    arbiter.State
	bl     *blocklist.List

	pollTimer *clock.Timer
	dumpTimer *clock.Timer

	logger *log.Logger
	debug  bool

	metrics   *metrics.Metrics
	dashboard *status.Dashboard
	notifier  *notify.Publisher
	geo       *geo.Lookup

	buf []byte
}

// Options configures the optional observability collaborators. Any of them
// may be nil/zero to disable that concern entirely.
type Options struct {
	Metrics   *metrics.Metrics
	Dashboard *status.Dashboard
	Notifier  *notify.Publisher
	Geo       *geo.Lookup
	Debug     bool
}

// New constructs a Loop bound to ep, identifying itself with callsign in
// outbound POLL replies.
func New(ep *transport.Endpoint, callsign string, bl *blocklist.List, logger *log.Logger, opts Options) *Loop {
	l := &Loop{
		ep:        ep,
		callsign:  frame.PadCallsign(callsign),
		roster:    roster.New(),
		bl:        bl,
		pollTimer: clock.New(pollInterval),
		dumpTimer: clock.New(dumpInterval),
		logger:    logger,
		debug:     opts.Debug,
		metrics:   opts.Metrics,
		dashboard: opts.Dashboard,
		notifier:  opts.Notifier,
		geo:       opts.Geo,
		buf:       make([]byte, frame.MaxSize),
	}
	l.pollTimer.Start()
	l.dumpTimer.Start()
	return l
}

// Run drives the loop until ctx is canceled.
func (l *Loop) Run(ctx context.Context) {
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		iterStart := time.Now()
		elapsed := iterStart.Sub(last)
		last = iterStart

		n, peer, err := l.ep.Read(l.buf)
		if err != nil {
			l.logger.Printf("reflector: read error: %v", err)
		} else if n > 0 {
			l.handlePacket(l.buf[:n], peer)
		}

		l.tickPoll(elapsed)
		l.roster.TickAll(elapsed)
		l.evictSilent()
		l.tickWatchdog(elapsed)
		l.tickDump(elapsed)
		if err := l.bl.Tick(elapsed); err != nil {
			l.logger.Printf("reflector: blocklist reload: %v", err)
		}

		if spent := time.Since(iterStart); spent < minIterationTime {
			time.Sleep(minIterationTime - spent)
		}
	}
}

func (l *Loop) handlePacket(b []byte, peer *net.UDPAddr) {
	if l.debug {
		l.logger.Printf("reflector: %d bytes from %s, magic %q", len(b), peer, frame.Magic(b))
	}
	switch frame.Magic(b) {
	case frame.MagicPoll:
		l.handlePoll(b, peer)
	case frame.MagicUnlink:
		l.handleUnlink(peer)
	case frame.MagicData:
		l.handleData(b, peer)
	default:
		// Unknown magic: silently dropped per spec.md §4.6 step 3.
	}
}

func (l *Loop) handlePoll(b []byte, peer *net.UDPAddr) {
	cs, ok := frame.PollCallsign(b)
	if !ok {
		return
	}
	e := l.roster.Find(peer)
	if e == nil {
		e = l.roster.Insert(peer, cs)
		l.logger.Printf("Adding %s (%s)", cs, peer)
		l.updateCount()
		l.notify(notify.Event{Type: "join", Callsign: cs, Address: peer.String()})
		l.broadcastSnapshot()
	}
	e.RestartSilence()

	if err := l.ep.SendTo(frame.BuildPoll(l.callsign, l.roster.Size()), peer); err != nil {
		l.logger.Printf("reflector: poll reply to %s: %v", peer, err)
	}
}

func (l *Loop) handleUnlink(peer *net.UDPAddr) {
	e := l.roster.Find(peer)
	if e == nil {
		return
	}
	l.logger.Printf("Removing %s (%s) unlinked", e.Callsign, peer)
	l.roster.RemoveByAddr(peer)
	l.updateCount()
	l.notify(notify.Event{Type: "leave", Callsign: e.Callsign, Address: peer.String()})
	l.broadcastSnapshot()
}

func (l *Loop) handleData(b []byte, peer *net.UDPAddr) {
	// Unregistered DATA is silently dropped (spec.md §4.6 step 3,
	// §7 MalformedFrame / anti-spoofing).
	e := l.roster.Find(peer)
	if e == nil {
		return
	}
	e.RestartSilence()

	d, ok := frame.ParseData(b)
	if !ok {
		return
	}

	_, curTag, curSrc, curDst, curTxID, wasActive := l.arb.Current()
	decision, ev := l.arb.Handle(d, peer, l.bl)

	if ev.Blocked {
		l.logger.Printf("Data from %s at %s blocked", ev.BlockedSrc, ev.BlockedTag)
		if l.metrics != nil {
			l.metrics.BlocklistDrops.Inc()
		}
		if wasActive {
			l.notify(notify.Event{Type: "tx_end", TxID: curTxID, Src: curSrc, Tag: curTag, Dst: curDst})
			l.broadcastSnapshot()
		}
	}
	if ev.Started {
		l.logger.Printf("Transmission from %s at %s to TG %s", ev.Src, ev.Tag, ev.Dst)
		l.notify(notify.Event{Type: "tx_start", TxID: ev.TxID, Src: ev.Src, Tag: ev.Tag, Dst: ev.Dst})
		l.broadcastSnapshot()
	}
	if ev.Overlap {
		l.logger.Printf("Ignoring overlapping TX from %s", ev.OverlapSrc)
		if l.metrics != nil {
			l.metrics.OverlapDrops.Inc()
		}
	}

	switch decision {
	case arbiter.DecisionRejectBlocked, arbiter.DecisionRejectOverlap:
		l.setActiveGauge()
		return
	}

	l.forward(b, peer)
	if l.metrics != nil {
		l.metrics.FramesForwarded.Inc()
	}

	if decision == arbiter.DecisionAcceptEnd {
		l.logger.Printf("Received end of transmission from %s at %s to TG %s", ev.Src, ev.Tag, ev.Dst)
		l.arb.FinishEnd()
		l.notify(notify.Event{Type: "tx_end", TxID: ev.TxID, Src: ev.Src, Tag: ev.Tag, Dst: ev.Dst})
		l.broadcastSnapshot()
	}
	l.setActiveGauge()
}

// forward sends b to every roster endpoint except the sender. A single
// failed send is logged and skipped; it never aborts the fan-out to the
// remaining recipients (spec.md §7).
func (l *Loop) forward(b []byte, sender *net.UDPAddr) {
	l.roster.Each(func(e *roster.Endpoint) {
		if transport.Equal(e.Addr, sender) {
			return
		}
		if err := l.ep.SendTo(b, e.Addr); err != nil {
			l.logger.Printf("reflector: forward to %s: %v", e.Addr, err)
		}
	})
}

func (l *Loop) tickPoll(elapsed time.Duration) {
	l.pollTimer.Tick(elapsed)
	if !l.pollTimer.Expired() {
		return
	}
	l.roster.Each(func(e *roster.Endpoint) {
		if err := l.ep.SendTo(frame.BuildPoll(l.callsign, l.roster.Size()), e.Addr); err != nil {
			l.logger.Printf("reflector: poll %s: %v", e.Addr, err)
		}
	})
	l.pollTimer.Start()
}

func (l *Loop) evictSilent() {
	evicted := false
	l.roster.EvictExpired(func(e *roster.Endpoint) {
		l.logger.Printf("Removing %s (%s) disappeared", e.Callsign, e.Addr)
		l.notify(notify.Event{Type: "leave", Callsign: e.Callsign, Address: e.Addr.String()})
		evicted = true
	})
	l.updateCount()
	if evicted {
		l.broadcastSnapshot()
	}
}

func (l *Loop) tickWatchdog(elapsed time.Duration) {
	expired, src, tag, dst, txID := l.arb.TickWatchdog(elapsed)
	if !expired {
		return
	}
	l.logger.Printf("Network watchdog has expired from %s at %s to TG %s", src, tag, dst)
	if l.metrics != nil {
		l.metrics.WatchdogExpiries.Inc()
	}
	l.notify(notify.Event{Type: "tx_end", TxID: txID, Src: src, Tag: tag, Dst: dst})
	l.setActiveGauge()
	l.broadcastSnapshot()
}

func (l *Loop) tickDump(elapsed time.Duration) {
	l.dumpTimer.Tick(elapsed)
	if !l.dumpTimer.Expired() {
		return
	}
	l.dumpRoster()
	l.broadcastSnapshot()
	l.dumpTimer.Start()
}

func (l *Loop) dumpRoster() {
	if l.roster.Size() == 0 {
		l.logger.Printf("No repeaters linked on TG %s", talkGroup)
		return
	}
	l.logger.Printf("Currently linked repeaters on TG %s:", talkGroup)
	l.roster.Each(func(e *roster.Endpoint) {
		country := ""
		if l.geo != nil {
			country = l.geo.Country(e.Addr.IP)
		}
		if country != "" {
			l.logger.Printf("    %s: %s (%s)", e.Callsign, e.Addr, country)
		} else {
			l.logger.Printf("    %s: %s", e.Callsign, e.Addr)
		}
	})
}

func (l *Loop) broadcastSnapshot() {
	if l.dashboard == nil {
		return
	}
	snap := status.Snapshot{}
	l.roster.Each(func(e *roster.Endpoint) {
		country := ""
		if l.geo != nil {
			country = l.geo.Country(e.Addr.IP)
		}
		snap.Endpoints = append(snap.Endpoints, status.EndpointView{
			Callsign: e.Callsign,
			Address:  e.Addr.String(),
			Country:  country,
		})
	})
	if _, tag, src, dst, txID, ok := l.arb.Current(); ok {
		snap.ActiveTX = true
		snap.TXSrc, snap.TXTag, snap.TXDst, snap.TXID = src, tag, dst, txID
	}
	l.dashboard.Broadcast(snap)
}

func (l *Loop) updateCount() {
	if l.metrics != nil {
		l.metrics.RosterSize.Set(float64(l.roster.Size()))
	}
}

func (l *Loop) setActiveGauge() {
	if l.metrics == nil {
		return
	}
	if l.arb.IsActive() {
		l.metrics.ActiveTransmission.Set(1)
	} else {
		l.metrics.ActiveTransmission.Set(0)
	}
}

func (l *Loop) notify(ev notify.Event) {
	if l.notifier == nil {
		return
	}
	l.notifier.Publish(ev)
}

// Close releases the loop's UDP socket.
func (l *Loop) Close() error {
	if err := l.ep.Close(); err != nil {
		return fmt.Errorf("reflector: close: %w", err)
	}
	return nil
}
