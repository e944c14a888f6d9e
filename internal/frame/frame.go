// Package frame parses the fixed-offset fields of YSF wire packets. The
// reflector never interprets payload bytes beyond the offsets named in
// spec.md §6 — voice/data content is forwarded verbatim.
package frame

// MaxSize is the largest frame the reflector will read from the wire.
const MaxSize = 200

// CallsignLen is the width, in bytes, of every callsign field on the wire:
// 10 ASCII bytes, space-padded.
const CallsignLen = 10

// Unknown is the placeholder callsign meaning "not yet resolved".
const Unknown = "??????????"

// Magic values identify the three packet classes the reflector handles.
const (
	MagicPoll   = "YSFP"
	MagicUnlink = "YSFU"
	MagicData   = "YSFD"
)

const magicLen = 4

// DATA frame field offsets, per spec.md §6.
const (
	dataTagOffset = 4
	dataTagEnd    = dataTagOffset + CallsignLen // 14

	dataSrcOffset = dataTagEnd
	dataSrcEnd    = dataSrcOffset + CallsignLen // 24

	dataDstOffset = dataSrcEnd
	dataDstEnd    = dataDstOffset + CallsignLen // 34

	dataEndFlagOffset = dataDstEnd // 34
)

// pollCallsignOffset is where a POLL frame's callsign begins; the callsign
// is a fixed CallsignLen bytes, so its end is computed from that width.
const pollCallsignOffset = 4

// Magic returns the 4-byte magic prefix of b, or "" if b is too short.
func Magic(b []byte) string {
	if len(b) < magicLen {
		return ""
	}
	return string(b[:magicLen])
}

// PollCallsign extracts the callsign carried in a POLL frame.
func PollCallsign(b []byte) (string, bool) {
	end := pollCallsignOffset + CallsignLen
	if len(b) < end {
		return "", false
	}
	return string(b[pollCallsignOffset:end]), true
}

// Data is a parsed view over a YSFD frame. Raw retains the original bytes
// so the reflector can forward them verbatim without re-encoding.
type Data struct {
	Tag string
	Src string
	Dst string
	End bool
	Raw []byte
}

// ParseData extracts the tag/src/dst/end-flag fields from a DATA frame. It
// returns ok=false if the frame is too short to contain them, in which case
// the caller should treat it as a MalformedFrame (spec.md §7) and drop it.
func ParseData(b []byte) (Data, bool) {
	if len(b) <= dataEndFlagOffset {
		return Data{}, false
	}
	return Data{
		Tag: string(b[dataTagOffset:dataTagEnd]),
		Src: string(b[dataSrcOffset:dataSrcEnd]),
		Dst: string(b[dataDstOffset:dataDstEnd]),
		End: b[dataEndFlagOffset]&0x01 == 0x01,
		Raw: b,
	}, true
}

// PadCallsign right-pads s with spaces to CallsignLen, truncating if it is
// already longer. Used when building outbound frames from config-supplied
// or file-supplied callsigns that may not already be fixed-width.
func PadCallsign(s string) string {
	if len(s) >= CallsignLen {
		return s[:CallsignLen]
	}
	buf := make([]byte, CallsignLen)
	copy(buf, s)
	for i := len(s); i < CallsignLen; i++ {
		buf[i] = ' '
	}
	return string(buf)
}
