package frame

import "testing"

func TestMagic(t *testing.T) {
	cases := map[string]string{
		"YSFP" + "TESTCALL  ":           MagicPoll,
		"YSFU":                         MagicUnlink,
		"YSFD" + "0123456789":          MagicData,
		"XX":                          "",
	}
	for input, want := range cases {
		if got := Magic([]byte(input)); got != want {
			t.Errorf("Magic(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestPollCallsign(t *testing.T) {
	b := []byte("YSFP" + "TESTCALL  ")
	cs, ok := PollCallsign(b)
	if !ok || cs != "TESTCALL  " {
		t.Fatalf("PollCallsign = %q, %v", cs, ok)
	}

	_, ok = PollCallsign([]byte("YSFP12"))
	if ok {
		t.Fatal("expected ok=false for truncated poll frame")
	}
}

func TestParseData(t *testing.T) {
	b := make([]byte, 40)
	copy(b, "YSFD")
	copy(b[4:], "TAG       ")
	copy(b[14:], "SRC       ")
	copy(b[24:], "DST       ")
	b[34] = 0x01

	d, ok := ParseData(b)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if d.Tag != "TAG       " || d.Src != "SRC       " || d.Dst != "DST       " {
		t.Fatalf("unexpected fields: %+v", d)
	}
	if !d.End {
		t.Fatal("expected end flag set")
	}

	b[34] = 0x02
	d, _ = ParseData(b)
	if d.End {
		t.Fatal("low bit clear must not report End")
	}
}

func TestParseDataTooShort(t *testing.T) {
	_, ok := ParseData([]byte("YSFD"))
	if ok {
		t.Fatal("expected ok=false for truncated data frame")
	}
}

func TestPadCallsign(t *testing.T) {
	if got := PadCallsign("W1ABC"); got != "W1ABC     " {
		t.Fatalf("PadCallsign short = %q", got)
	}
	if got := PadCallsign("LONGCALLSIGNTOOLONG"); len(got) != CallsignLen {
		t.Fatalf("PadCallsign truncation length = %d", len(got))
	}
}

func TestBuildPoll(t *testing.T) {
	b := BuildPoll("REFLECT", 3)
	if Magic(b) != MagicPoll {
		t.Fatal("expected YSFP magic")
	}
	cs, ok := PollCallsign(b)
	if !ok || cs != "REFLECT   " {
		t.Fatalf("callsign = %q, %v", cs, ok)
	}
	if b[len(b)-1] != 3 {
		t.Fatalf("count byte = %d, want 3", b[len(b)-1])
	}
}
