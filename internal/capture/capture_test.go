package capture

import (
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/xbeeapi/internal/codec"
	"github.com/muurk/xbeeapi/internal/packet"
)

func TestNewPacketRecord(t *testing.T) {
	p, err := packet.NewRXIPv4Packet(netip.MustParseAddr("10.10.11.12"), 37, 179, packet.ProtocolTCP, []byte("Hi"))
	if err != nil {
		t.Fatalf("NewRXIPv4Packet() error = %v", err)
	}

	rec := NewPacketRecord("serial:/dev/ttyUSB0", 7, "rx", p, codec.ModeAPI)

	if rec.Kind != KindPacket || rec.Seq != 7 || rec.Direction != "rx" {
		t.Errorf("record header = %+v", rec)
	}
	if rec.FrameType == nil || *rec.FrameType != 0xB0 {
		t.Errorf("FrameType = %v, want 0xB0", rec.FrameType)
	}
	if rec.Fields["Source address"] != "0A 0A 0B 0C (10.10.11.12)" {
		t.Errorf("Fields[Source address] = %q", rec.Fields["Source address"])
	}
	if rec.PayloadHex != "b00a0a0b0c002500b301004869" {
		t.Errorf("PayloadHex = %s", rec.PayloadHex)
	}
	if !strings.HasSuffix(rec.PayloadASCII, "Hi") {
		t.Errorf("PayloadASCII = %q, want suffix Hi", rec.PayloadASCII)
	}
	if !strings.HasPrefix(rec.FrameHex, "7e000d") {
		t.Errorf("FrameHex = %s, want 7e000d prefix", rec.FrameHex)
	}

	payload, err := rec.Payload()
	if err != nil {
		t.Fatalf("Payload() error = %v", err)
	}
	if _, err := packet.Parse(payload); err != nil {
		t.Errorf("Parse(Payload()) error = %v", err)
	}
}

func TestRecorder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	rec, err := NewRecorder(dir, "tcp:bridge:9750")
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	rec.PacketReceived(packet.NewModemStatusPacket(packet.ModemStatusJoinedNetwork))
	rec.ReceiveError(codec.ErrChecksumMismatch)
	rec.ConnectionClosed(errors.New("unplugged"))
	// Events after close are ignored.
	rec.PacketReceived(packet.NewModemStatusPacket(packet.ModemStatusDisassociated))

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if filepath.Dir(rec.Path()) != dir || !strings.HasPrefix(filepath.Base(rec.Path()), "capture-") {
		t.Errorf("Path() = %s", rec.Path())
	}

	f, err := os.Open(rec.Path())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	records, err := ReadRecords(f)
	if err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	wantKinds := []string{KindPacket, KindError, KindClosed}
	for i, r := range records {
		if r.Kind != wantKinds[i] {
			t.Errorf("record %d kind = %s, want %s", i, r.Kind, wantKinds[i])
		}
		if r.Seq != uint64(i+1) {
			t.Errorf("record %d seq = %d, want %d", i, r.Seq, i+1)
		}
		if r.Source != "tcp:bridge:9750" {
			t.Errorf("record %d source = %s", i, r.Source)
		}
	}
	if records[0].FrameName != "Modem Status" {
		t.Errorf("FrameName = %s, want Modem Status", records[0].FrameName)
	}
	if !strings.Contains(records[1].Error, "checksum") {
		t.Errorf("error record = %q", records[1].Error)
	}
	if records[2].Error != "unplugged" {
		t.Errorf("closed record error = %q, want unplugged", records[2].Error)
	}
}

func TestReadRecordsBadLine(t *testing.T) {
	input := `{"kind":"packet","seq":1}` + "\n\n" + "not json\n"
	records, err := ReadRecords(strings.NewReader(input))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("ReadRecords() error = %v, want line 3 error", err)
	}
	if len(records) != 1 {
		t.Errorf("ReadRecords() returned %d records before the error, want 1", len(records))
	}
}

func TestToASCII(t *testing.T) {
	if got := toASCII([]byte{0x48, 0x00, 0x7E, 0x7F}); got != "H.~." {
		t.Errorf("toASCII() = %q, want %q", got, "H.~.")
	}
}
