// Package capture records link traffic as JSON Lines for offline analysis.
//
// Each inbound packet or receive error becomes one Record. The same Record
// shape is streamed to bridge clients, so a capture file and a bridge
// session can be processed by the same tooling.
package capture

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/logging"
	"github.com/muurk/xbeeapi/internal/packet"
	"go.uber.org/zap"
)

// Record kinds
const (
	KindPacket = "packet"
	KindError  = "error"
	KindClosed = "closed"
)

// Record is one captured event
type Record struct {
	Timestamp    time.Time         `json:"timestamp"`
	Seq          uint64            `json:"seq"`
	Source       string            `json:"source,omitempty"`
	Kind         string            `json:"kind"`
	Direction    string            `json:"direction,omitempty"`
	FrameType    *byte             `json:"frame_type,omitempty"`
	FrameName    string            `json:"frame_name,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
	PayloadHex   string            `json:"payload_hex,omitempty"`
	PayloadASCII string            `json:"payload_ascii,omitempty"`
	FrameHex     string            `json:"frame_hex,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// NewPacketRecord describes p. When mode is non-zero the encoded frame is included.
func NewPacketRecord(source string, seq uint64, direction string, p packet.Packet, mode codec.Mode) Record {
	payload := p.Payload()
	ft := byte(p.FrameType())

	fields := make(map[string]string)
	for _, f := range p.Fields() {
		fields[f.Name] = f.Value
	}

	rec := Record{
		Timestamp:    time.Now(),
		Seq:          seq,
		Source:       source,
		Kind:         KindPacket,
		Direction:    direction,
		FrameType:    &ft,
		FrameName:    p.FrameType().String(),
		Fields:       fields,
		PayloadHex:   hex.EncodeToString(payload),
		PayloadASCII: toASCII(payload),
	}
	if mode != 0 {
		if frame, err := codec.EncodeFrame(payload, mode); err == nil {
			rec.FrameHex = hex.EncodeToString(frame)
		}
	}
	return rec
}

// NewErrorRecord describes a frame that failed to assemble or parse
func NewErrorRecord(source string, seq uint64, err error) Record {
	return Record{
		Timestamp: time.Now(),
		Seq:       seq,
		Source:    source,
		Kind:      KindError,
		Direction: "rx",
		Error:     err.Error(),
	}
}

// Payload decodes PayloadHex back into bytes
func (r Record) Payload() ([]byte, error) {
	return hex.DecodeString(r.PayloadHex)
}

// Recorder is a dispatcher listener that appends every event to a JSONL file
type Recorder struct {
	source string
	path   string

	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	seq uint64
}

// NewRecorder creates dir if needed and opens a new capture-<timestamp>.jsonl file in it
func NewRecorder(dir, source string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	logging.Info("Capturing traffic",
		zap.String("filename", filename),
		zap.String("source", source),
	)

	return &Recorder{
		source: source,
		path:   filename,
		f:      f,
		w:      bufio.NewWriter(f),
	}, nil
}

// Path returns the capture file name
func (r *Recorder) Path() string {
	return r.path
}

// PacketReceived implements dispatcher.Listener
func (r *Recorder) PacketReceived(p packet.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.write(NewPacketRecord(r.source, r.seq, "rx", p, 0))
}

// ReceiveError implements dispatcher.ErrorListener
func (r *Recorder) ReceiveError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.write(NewErrorRecord(r.source, r.seq, err))
}

// ConnectionClosed implements dispatcher.CloseListener; the file is flushed and closed
func (r *Recorder) ConnectionClosed(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return
	}
	r.seq++
	rec := Record{Timestamp: time.Now(), Seq: r.seq, Source: r.source, Kind: KindClosed}
	if cause != nil {
		rec.Error = cause.Error()
	}
	r.write(rec)
	r.closeLocked()
}

// Close flushes and closes the capture file
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) closeLocked() error {
	if r.f == nil {
		return nil
	}
	flushErr := r.w.Flush()
	closeErr := r.f.Close()
	r.f = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (r *Recorder) write(rec Record) {
	if r.f == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		logging.Error("Failed to marshal capture record", zap.Error(err))
		return
	}

	if _, err := r.w.Write(append(data, '\n')); err != nil {
		logging.Error("Failed to write to capture file",
			zap.String("filename", r.path),
			zap.Error(err),
		)
		return
	}
	// Flush per record so a killed process still leaves a usable file.
	if err := r.w.Flush(); err != nil {
		logging.Error("Failed to flush capture file",
			zap.String("filename", r.path),
			zap.Error(err),
		)
	}
}

// ReadRecords parses a JSONL capture stream
func ReadRecords(rd io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// toASCII converts bytes to ASCII string (non-printable chars become '.')
func toASCII(data []byte) string {
	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}
