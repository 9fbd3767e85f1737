package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/anthropics/hawkbit-go-client/internal/testutil"
)

func TestSink_WritesExactlySlotSizeBytes(t *testing.T) {
	slot := testutil.NewFakeSpareSlot(4096)
	sink := New(slot)
	if err := sink.Init(""); err != nil {
		t.Fatalf("init: %v", err)
	}

	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}

	// Write in uneven chunks to exercise the page-buffering path.
	if err := sink.Write(data[:1000], false); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if err := sink.Write(data[1000:4095], false); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	if err := sink.Write(data[4095:], true); err != nil {
		t.Fatalf("write 3 (final): %v", err)
	}

	if sink.BytesWritten() != 4096 {
		t.Fatalf("expected 4096 bytes written, got %d", sink.BytesWritten())
	}
	if string(slot.Bytes()) != string(data) {
		t.Fatal("spare slot contents do not match source data")
	}
}

func TestSink_RejectsWriteExceedingSlotCapacity(t *testing.T) {
	slot := testutil.NewFakeSpareSlot(10)
	sink := New(slot)
	if err := sink.Init(""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := sink.Write(make([]byte, 11), true); err == nil {
		t.Fatal("expected error writing more bytes than the slot can hold")
	}
}

func TestSink_InitTwiceInOnePollPanics(t *testing.T) {
	slot := testutil.NewFakeSpareSlot(10)
	sink := New(slot)
	if err := sink.Init(""); err != nil {
		t.Fatalf("init: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on second Init call")
		}
	}()
	sink.Init("")
}

func TestSink_VerifyDigest(t *testing.T) {
	slot := testutil.NewFakeSpareSlot(4)
	sink := New(slot)
	if err := sink.Init("sha256"); err != nil {
		t.Fatalf("init: %v", err)
	}
	data := []byte("fw!!")
	if err := sink.Write(data, true); err != nil {
		t.Fatalf("write: %v", err)
	}

	sum := sha256.Sum256(data)
	want := hex.EncodeToString(sum[:])

	if err := sink.VerifyDigest(want); err != nil {
		t.Fatalf("expected digest match, got %v", err)
	}
	if err := sink.VerifyDigest("deadbeef"); err == nil {
		t.Fatal("expected digest mismatch error")
	}
}
