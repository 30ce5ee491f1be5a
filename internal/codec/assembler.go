package codec

import (
	"encoding/binary"
	"fmt"
)

// State is the position of the Assembler inside the current frame
type State int

const (
	AwaitingStart State = iota
	ReadingLength
	ReadingPayload
	ReadingChecksum
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case AwaitingStart:
		return "awaiting-start"
	case ReadingLength:
		return "reading-length"
	case ReadingPayload:
		return "reading-payload"
	case ReadingChecksum:
		return "reading-checksum"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is one completed frame: either a verified payload or the reason it was dropped
type Result struct {
	Payload []byte
	Err     error
}

// Stats counts what an Assembler has seen since creation
type Stats struct {
	Frames         int // verified frames emitted
	ChecksumErrors int // frames dropped for a bad checksum
	Resyncs        int // partial frames discarded on an unexpected start delimiter
	Discarded      int // bytes skipped while waiting for a start delimiter
}

// Assembler rebuilds API frames from a raw byte stream.
// Partial frames are buffered across Feed calls so reads may split anywhere,
// including between an escape byte and the byte it escapes.
type Assembler struct {
	mode    Mode
	state   State
	escaped bool

	lenBuf  [2]byte
	lenRead int
	length  int
	payload []byte

	stats Stats
}

// NewAssembler creates an assembler for the given operating mode
func NewAssembler(mode Mode) *Assembler {
	return &Assembler{mode: mode}
}

// Mode returns the operating mode the assembler decodes
func (a *Assembler) Mode() Mode {
	return a.mode
}

// State returns the current assembly state
func (a *Assembler) State() State {
	return a.state
}

// Stats returns counters accumulated since creation
func (a *Assembler) Stats() Stats {
	return a.stats
}

// Reset discards any partial frame and waits for the next start delimiter
func (a *Assembler) Reset() {
	a.state = AwaitingStart
	a.escaped = false
	a.lenRead = 0
	a.length = 0
	a.payload = nil
}

// Feed consumes raw bytes and returns every frame completed by them, in order.
// A frame is only emitted after delimiter, length, full payload and checksum
// have been seen. Bad frames are reported as a Result with Err set and never
// stop assembly of the frames that follow.
func (a *Assembler) Feed(data []byte) []Result {
	var results []Result
	for _, b := range data {
		if a.mode == ModeAPIEscaped {
			// An unescaped delimiter can only start a frame in escaped mode.
			if b == StartDelimiter {
				if a.state != AwaitingStart {
					a.stats.Resyncs++
					results = append(results, Result{Err: newFrameError(KindMalformedFrame,
						"partial frame discarded in state %s: unexpected start delimiter", a.state)})
				}
				a.begin()
				continue
			}
			if a.state == AwaitingStart {
				a.stats.Discarded++
				continue
			}
			if a.escaped {
				b ^= EscapeXOR
				a.escaped = false
			} else if b == EscapeByte {
				a.escaped = true
				continue
			}
		} else if a.state == AwaitingStart {
			if b == StartDelimiter {
				a.begin()
			} else {
				a.stats.Discarded++
			}
			continue
		}

		if res, done := a.step(b); done {
			results = append(results, res)
		}
	}
	return results
}

func (a *Assembler) begin() {
	a.Reset()
	a.state = ReadingLength
}

// step advances the state machine with one de-escaped byte
func (a *Assembler) step(b byte) (Result, bool) {
	switch a.state {
	case ReadingLength:
		a.lenBuf[a.lenRead] = b
		a.lenRead++
		if a.lenRead < len(a.lenBuf) {
			return Result{}, false
		}
		a.length = int(binary.BigEndian.Uint16(a.lenBuf[:]))
		if a.length == 0 {
			a.Reset()
			return Result{Err: newFrameError(KindMalformedFrame, "zero length frame")}, true
		}
		a.payload = make([]byte, 0, a.length)
		a.state = ReadingPayload

	case ReadingPayload:
		a.payload = append(a.payload, b)
		if len(a.payload) == a.length {
			a.state = ReadingChecksum
		}

	case ReadingChecksum:
		payload := a.payload
		a.Reset()
		if !Verify(payload, b) {
			a.stats.ChecksumErrors++
			return Result{Err: newFrameError(KindChecksumMismatch,
				"checksum 0x%02X does not match %d byte payload (expected 0x%02X)", b, len(payload), Checksum(payload))}, true
		}
		a.stats.Frames++
		return Result{Payload: payload}, true
	}
	return Result{}, false
}
