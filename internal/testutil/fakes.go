// Package testutil provides hand-rolled fakes for the collaborator
// interfaces the update client consumes, in place of a mocking framework
// (the pattern used throughout the example corpus, e.g. the hailo driver's
// testutil/fakes.go).
package testutil

import (
	"errors"
	"sync"

	"github.com/anthropics/hawkbit-go-client/internal/bootloader"
)

var _ bootloader.Bootloader = (*FakeBootloader)(nil)
var _ bootloader.SpareSlotWriter = (*FakeSpareSlot)(nil)

// FakeBootloader implements bootloader.Bootloader with failure-injection
// flags for each operation.
type FakeBootloader struct {
	mu sync.Mutex

	confirmed   bool
	erased      bool
	swapCount   int
	spareSlot   *FakeSpareSlot
	failConfirm bool
	failErase   bool
	failSwap    bool
	failIsConf  bool
}

// NewFakeBootloader returns a FakeBootloader whose running image starts in
// the given confirmation state, with a spare slot of spareSlotSize bytes.
func NewFakeBootloader(confirmed bool, spareSlotSize int64) *FakeBootloader {
	return &FakeBootloader{
		confirmed: confirmed,
		spareSlot: NewFakeSpareSlot(spareSlotSize),
	}
}

func (b *FakeBootloader) SetFailConfirm(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failConfirm = fail
}

func (b *FakeBootloader) SetFailErase(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErase = fail
}

func (b *FakeBootloader) SetFailSwap(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSwap = fail
}

func (b *FakeBootloader) SetFailIsConfirmed(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failIsConf = fail
}

func (b *FakeBootloader) IsConfirmed() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failIsConf {
		return false, errors.New("fake: is-confirmed query failed")
	}
	return b.confirmed, nil
}

func (b *FakeBootloader) Confirm() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failConfirm {
		return errors.New("fake: confirm failed")
	}
	b.confirmed = true
	return nil
}

func (b *FakeBootloader) EraseSpareBank() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErase {
		return errors.New("fake: erase spare bank failed")
	}
	b.erased = true
	return nil
}

func (b *FakeBootloader) SpareSlot() bootloader.SpareSlotWriter {
	return b.spareSlot
}

func (b *FakeBootloader) RequestSwap() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failSwap {
		return errors.New("fake: request swap failed")
	}
	b.swapCount++
	return nil
}

func (b *FakeBootloader) SwapCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.swapCount
}

func (b *FakeBootloader) Erased() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.erased
}

// FakeSpareSlot is an in-memory stand-in for the spare firmware bank.
type FakeSpareSlot struct {
	mu   sync.Mutex
	data []byte
	size int64
}

func NewFakeSpareSlot(size int64) *FakeSpareSlot {
	return &FakeSpareSlot{data: make([]byte, size), size: size}
}

func (s *FakeSpareSlot) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 || off+int64(len(p)) > s.size {
		return 0, errors.New("fake spare slot: write out of bounds")
	}
	copy(s.data[off:], p)
	return len(p), nil
}

func (s *FakeSpareSlot) Size() int64 {
	return s.size
}

// Bytes returns a copy of everything written so far, for test assertions.
func (s *FakeSpareSlot) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// FakeIdentityProvider implements identity.Provider with fixed values.
type FakeIdentityProvider struct {
	ID      string
	Version string
	FailID  bool
	FailVer bool
}

func (f *FakeIdentityProvider) DeviceID() (string, error) {
	if f.FailID {
		return "", errors.New("fake: device id unavailable")
	}
	return f.ID, nil
}

func (f *FakeIdentityProvider) FirmwareVersion() (string, error) {
	if f.FailVer {
		return "", errors.New("fake: firmware version unavailable")
	}
	return f.Version, nil
}
