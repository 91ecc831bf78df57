package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestErasePayloadRoundTrip(t *testing.T) {
	p := BuildErasePayload(0x1000, 256000)
	offset, length, err := ParseErasePayload(p)
	if err != nil {
		t.Fatalf("ParseErasePayload: %v", err)
	}
	if offset != 0x1000 || length != 256000 {
		t.Errorf("got offset=%d length=%d, want 4096/256000", offset, length)
	}

	if _, _, err := ParseErasePayload([]byte{1, 2, 3}); !errors.Is(err, ErrShortPayload) {
		t.Errorf("short payload err = %v, want ErrShortPayload", err)
	}
}

func TestWritePayload(t *testing.T) {
	data := bytes.Repeat([]byte{0x5A}, ChunkSize)
	p, err := BuildWritePayload(0x2000, data)
	if err != nil {
		t.Fatalf("BuildWritePayload: %v", err)
	}
	offset, got, err := ParseWritePayload(p)
	if err != nil {
		t.Fatalf("ParseWritePayload: %v", err)
	}
	if offset != 0x2000 {
		t.Errorf("offset = %d, want 8192", offset)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("data mismatch: %d bytes", len(got))
	}

	if _, err := BuildWritePayload(0, nil); !errors.Is(err, ErrShortPayload) {
		t.Errorf("empty data err = %v, want ErrShortPayload", err)
	}
	if _, err := BuildWritePayload(0, make([]byte, ChunkSize+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("oversized data err = %v, want ErrPayloadTooLarge", err)
	}
	if _, _, err := ParseWritePayload([]byte{0, 0, 0, 0}); !errors.Is(err, ErrShortPayload) {
		t.Errorf("offset-only payload err = %v, want ErrShortPayload", err)
	}
}

func TestVerifyPayloadRoundTrip(t *testing.T) {
	p := BuildVerifyPayload(256000, 0xDEADBEEF)
	length, checksum, err := ParseVerifyPayload(p)
	if err != nil {
		t.Fatalf("ParseVerifyPayload: %v", err)
	}
	if length != 256000 {
		t.Errorf("length = %d, want 256000", length)
	}
	if checksum != 0xDEADBEEF {
		t.Errorf("checksum = 0x%08X, want 0xDEADBEEF", checksum)
	}
}

func TestIdentityPayloadRoundTrip(t *testing.T) {
	mac := [6]byte{0xAA, 0xBB, 0xCC, 0x00, 0x11, 0x22}
	p := BuildIdentityPayload(4*1024*1024, mac, "SIM32")

	flashSize, gotMAC, chip, err := ParseIdentityPayload(p)
	if err != nil {
		t.Fatalf("ParseIdentityPayload: %v", err)
	}
	if flashSize != 4*1024*1024 {
		t.Errorf("flashSize = %d, want 4 MiB", flashSize)
	}
	if gotMAC != mac {
		t.Errorf("mac = %v, want %v", gotMAC, mac)
	}
	if chip != "SIM32" {
		t.Errorf("chip = %q, want SIM32", chip)
	}

	if _, _, _, err := ParseIdentityPayload(make([]byte, 9)); !errors.Is(err, ErrShortPayload) {
		t.Errorf("short payload err = %v, want ErrShortPayload", err)
	}
}

func TestFormatMAC(t *testing.T) {
	got := FormatMAC([6]byte{0xAA, 0xBB, 0xCC, 0x00, 0x11, 0x22})
	if got != "aa:bb:cc:00:11:22" {
		t.Errorf("FormatMAC = %q, want aa:bb:cc:00:11:22", got)
	}
}

func TestOpAndStatusStrings(t *testing.T) {
	if OpWrite.String() != "WRITE" {
		t.Errorf("OpWrite = %q", OpWrite.String())
	}
	if Op(0xEE).String() != "UNKNOWN" {
		t.Errorf("unknown op = %q", Op(0xEE).String())
	}
	if !OpSync.Valid() || Op(0x99).Valid() {
		t.Error("Valid misclassifies opcodes")
	}
	if StatusVerifyMismatch.String() != "VERIFY_MISMATCH" {
		t.Errorf("status = %q", StatusVerifyMismatch.String())
	}
	if StatusOK.String() != "OK" || !StatusOK.IsOK() || StatusBadRange.IsOK() {
		t.Error("StatusOK helpers misbehave")
	}
}
