package transport

import (
	"net"
	"testing"
	"time"
)

func TestEqualIgnoresRepresentation(t *testing.T) {
	a := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1000}
	b := &net.UDPAddr{IP: net.ParseIP("192.0.2.1").To4(), Port: 1000}
	if !Equal(a, b) {
		t.Fatal("expected equal addresses")
	}

	c := &net.UDPAddr{IP: net.ParseIP("192.0.2.2"), Port: 1000}
	if Equal(a, c) {
		t.Fatal("expected different IPs to compare unequal")
	}

	d := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1001}
	if Equal(a, d) {
		t.Fatal("expected different ports to compare unequal")
	}
}

func TestKeyCollidesAcrossRepresentation(t *testing.T) {
	a := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 1000}
	b := &net.UDPAddr{IP: net.ParseIP("192.0.2.1").To4(), Port: 1000}
	if Key(a) != Key(b) {
		t.Fatalf("Key(a)=%q Key(b)=%q, want equal", Key(a), Key(b))
	}
}

func TestOpenReadSendTo(t *testing.T) {
	ep, err := Open(0)
	if err != nil {
		t.Fatal(err)
	}
	defer ep.Close()

	other, err := Open(0)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	if err := other.SendTo([]byte("hello"), ep.LocalAddr()); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 64)
	deadline := time.Now().Add(200 * time.Millisecond)
	var n int
	var peer *net.UDPAddr
	for time.Now().Before(deadline) {
		n, peer, err = ep.Read(buf)
		if err != nil {
			t.Fatal(err)
		}
		if n > 0 {
			break
		}
	}
	if n != 5 || string(buf[:n]) != "hello" {
		t.Fatalf("read %q", buf[:n])
	}
	if peer == nil {
		t.Fatal("expected a peer address")
	}
}
