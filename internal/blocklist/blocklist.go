// Package blocklist loads and periodically reloads a set of forbidden
// source callsigns from a text file. Grounded on the teacher's
// IPBanManager in ipban.go: a file-backed set, swapped wholesale on reload
// so a reader never observes a torn set (spec.md §4.3, §5).
package blocklist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cwsl/ysfreflector/internal/clock"
	"github.com/cwsl/ysfreflector/internal/frame"
)

// List is a reloadable set of blocked source callsigns.
type List struct {
	path     string
	set      map[string]struct{}
	reload   *clock.Timer
	interval time.Duration
}

// New loads path immediately and arms a reload timer at interval. An empty
// path disables the blocklist entirely (Check always returns false), the
// way the teacher's GeoIPService treats an empty database path as "disabled"
// rather than an error.
func New(path string, interval time.Duration) (*List, error) {
	l := &List{
		path:     path,
		set:      map[string]struct{}{},
		reload:   clock.New(interval),
		interval: interval,
	}
	if path == "" {
		return l, nil
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	l.reload.Start()
	return l, nil
}

// load reads path and atomically swaps the set. One callsign per line,
// normalized to 10 bytes, space-padded; blank and '#' comment lines are
// ignored; duplicates collapse naturally via the set.
func (l *List) load() error {
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("blocklist: open %s: %w", l.path, err)
	}
	defer f.Close()

	next := map[string]struct{}{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		next[frame.PadCallsign(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("blocklist: read %s: %w", l.path, err)
	}
	l.set = next
	return nil
}

// Check reports whether cs (already a 10-byte, space-padded callsign) is
// forbidden. Pure and side-effect-free, as spec.md §4.3 requires.
func (l *List) Check(cs string) bool {
	if l.path == "" {
		return false
	}
	_, blocked := l.set[cs]
	return blocked
}

// Tick advances the reload timer; on expiry the file is re-read and the
// timer restarted. A reload failure (e.g. the file was briefly unreadable
// mid-edit) leaves the previous set in place and is returned to the caller
// to log, rather than panicking the reflector loop.
func (l *List) Tick(elapsed time.Duration) error {
	if l.path == "" {
		return nil
	}
	l.reload.Tick(elapsed)
	if !l.reload.Expired() {
		return nil
	}
	l.reload.Start()
	return l.load()
}

// Size reports the number of distinct blocked callsigns currently loaded.
func (l *List) Size() int {
	return len(l.set)
}
