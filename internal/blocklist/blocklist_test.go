package blocklist

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "blocklist.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCheckExactMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "S1\n# comment\n\nS2\n")

	l, err := New(path, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !l.Check("S1        ") {
		t.Fatal("expected S1 to be blocked")
	}
	if !l.Check("S2        ") {
		t.Fatal("expected S2 to be blocked")
	}
	if l.Check("S3        ") {
		t.Fatal("S3 should not be blocked")
	}
}

func TestEmptyPathDisables(t *testing.T) {
	l, err := New("", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if l.Check("ANYTHING  ") {
		t.Fatal("a disabled blocklist must never block")
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "S1\n")

	l, err := New(path, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if l.Check("S2        ") {
		t.Fatal("S2 should not be blocked yet")
	}

	writeFile(t, dir, "S2\n")
	if err := l.Tick(11 * time.Millisecond); err != nil {
		t.Fatal(err)
	}

	if l.Check("S1        ") {
		t.Fatal("reload should have swapped the set; S1 is gone")
	}
	if !l.Check("S2        ") {
		t.Fatal("reload should have picked up S2")
	}
}

func TestDuplicatesCollapse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "S1\nS1\nS1\n")

	l, err := New(path, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if l.Size() != 1 {
		t.Fatalf("size = %d, want 1", l.Size())
	}
}
