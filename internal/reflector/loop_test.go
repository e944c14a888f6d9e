package reflector

import (
	"context"
	"log"
	"net"
	"os"
	"testing"
	"time"

	"github.com/cwsl/ysfreflector/internal/blocklist"
	"github.com/cwsl/ysfreflector/internal/frame"
	"github.com/cwsl/ysfreflector/internal/transport"
)

func newTestLoop(t *testing.T) (*Loop, *net.UDPAddr) {
	t.Helper()
	ep, err := transport.Open(0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ep.Close() })

	bl, err := blocklist.New("", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	logger := log.New(os.Stderr, "", 0)
	loop := New(ep, "REFLECTOR ", bl, logger, Options{})

	laddr := ep.LocalAddr()
	return loop, laddr
}

// client is a throwaway UDP socket standing in for one repeater.
type client struct {
	conn *net.UDPConn
}

func newClient(t *testing.T, serverAddr *net.UDPAddr) *client {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, serverAddr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return &client{conn: conn}
}

func (c *client) send(b []byte) {
	c.conn.Write(b)
}

func (c *client) tryRead(timeout time.Duration) ([]byte, bool) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, frame.MaxSize)
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, false
	}
	return buf[:n], true
}

func runLoopFor(loop *Loop, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	loop.Run(ctx)
}

func dataBytes(tag, src, dst string, end bool) []byte {
	b := make([]byte, 40)
	copy(b, frame.MagicData)
	copy(b[4:], frame.PadCallsign(tag))
	copy(b[14:], frame.PadCallsign(src))
	copy(b[24:], frame.PadCallsign(dst))
	if end {
		b[34] = 0x01
	}
	return b
}

func TestPollRegisters(t *testing.T) {
	loop, laddr := newTestLoop(t)
	c1 := newClient(t, laddr)

	go runLoopFor(loop, 150*time.Millisecond)

	c1.send([]byte(frame.MagicPoll + "TESTCALL  "))
	reply, ok := c1.tryRead(100 * time.Millisecond)
	if !ok {
		t.Fatal("expected a POLL reply")
	}
	if frame.Magic(reply) != frame.MagicPoll {
		t.Fatalf("reply magic = %q", frame.Magic(reply))
	}

	time.Sleep(150 * time.Millisecond)
	if loop.roster.Size() != 1 {
		t.Fatalf("roster size = %d, want 1", loop.roster.Size())
	}
}

func TestDataFromUnregisteredPeerIsDropped(t *testing.T) {
	loop, laddr := newTestLoop(t)
	c1 := newClient(t, laddr)

	go runLoopFor(loop, 150*time.Millisecond)

	c1.send(dataBytes("T1        ", "S1        ", "D1        ", false))
	time.Sleep(100 * time.Millisecond)

	if loop.arb.IsActive() {
		t.Fatal("unregistered DATA must not start a transmission")
	}
}

func TestFirstWinsArbitrationOverUDP(t *testing.T) {
	loop, laddr := newTestLoop(t)
	c1 := newClient(t, laddr)
	c2 := newClient(t, laddr)

	go runLoopFor(loop, 400*time.Millisecond)

	c1.send([]byte(frame.MagicPoll + "CALL1     "))
	c1.tryRead(100 * time.Millisecond)
	c2.send([]byte(frame.MagicPoll + "CALL2     "))
	c2.tryRead(100 * time.Millisecond)

	c1.send(dataBytes("T1        ", "S1        ", "D1        ", false))
	fwd, ok := c2.tryRead(150 * time.Millisecond)
	if !ok {
		t.Fatal("expected c1's frame forwarded to c2")
	}
	if frame.Magic(fwd) != frame.MagicData {
		t.Fatalf("forwarded magic = %q", frame.Magic(fwd))
	}

	c2.send(dataBytes("T2        ", "S2        ", "D2        ", false))
	if _, ok := c1.tryRead(100 * time.Millisecond); ok {
		t.Fatal("overlapping transmission must not be forwarded")
	}
}
