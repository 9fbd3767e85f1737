// Package simdevice provides file-backed stand-ins for the bootloader and
// device-identity collaborators spec.md §6 leaves as out-of-scope hardware
// interfaces. They let cmd/hawkbit-client run end-to-end against a real
// hawkBit server without real flash or a secure element backing them.
package simdevice

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/hawkbit-go-client/internal/bootloader"
)

const confirmedMarkerName = "confirmed"

// FileBootloader persists the running image's confirmation state as a
// marker file and the spare slot as a fixed-size regular file, standing in
// for the flash-backed bootloader spec.md's bootloader::{...} interface
// describes.
type FileBootloader struct {
	dir       string
	spareSlot *fileSpareSlot
	swapCount int
}

// NewFileBootloader opens (creating if necessary) a bootloader state
// directory at dir, with a spare slot of spareSlotSize bytes.
func NewFileBootloader(dir string, spareSlotSize int64) (*FileBootloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("simdevice: create bootloader state dir: %w", err)
	}
	slot, err := openFileSpareSlot(filepath.Join(dir, "spare.bin"), spareSlotSize)
	if err != nil {
		return nil, err
	}
	return &FileBootloader{dir: dir, spareSlot: slot}, nil
}

func (b *FileBootloader) markerPath() string {
	return filepath.Join(b.dir, confirmedMarkerName)
}

// IsConfirmed reports whether the running image has been confirmed. A
// freshly initialized device starts unconfirmed, matching a first-boot
// image awaiting confirmation after its own install.
func (b *FileBootloader) IsConfirmed() (bool, error) {
	_, err := os.Stat(b.markerPath())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("simdevice: stat confirmation marker: %w", err)
}

// Confirm writes the confirmation marker.
func (b *FileBootloader) Confirm() error {
	if err := os.WriteFile(b.markerPath(), []byte{}, 0o644); err != nil {
		return fmt.Errorf("simdevice: write confirmation marker: %w", err)
	}
	return nil
}

// EraseSpareBank zeroes the spare slot file.
func (b *FileBootloader) EraseSpareBank() error {
	return b.spareSlot.zero()
}

// SpareSlot returns the writable spare slot.
func (b *FileBootloader) SpareSlot() bootloader.SpareSlotWriter {
	return b.spareSlot
}

// RequestSwap marks the spare slot for a test boot on next restart. A real
// bootloader would flip an image trailer; here that's a sentinel file next
// to the slot, since there is no real second boot in this process.
func (b *FileBootloader) RequestSwap() error {
	marker := filepath.Join(b.dir, "swap-requested")
	if err := os.WriteFile(marker, []byte{}, 0o644); err != nil {
		return fmt.Errorf("simdevice: write swap marker: %w", err)
	}
	b.swapCount++
	return nil
}

type fileSpareSlot struct {
	f    *os.File
	size int64
}

func openFileSpareSlot(path string, size int64) (*fileSpareSlot, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("simdevice: open spare slot file: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("simdevice: size spare slot file: %w", err)
	}
	return &fileSpareSlot{f: f, size: size}, nil
}

func (s *fileSpareSlot) WriteAt(p []byte, off int64) (int, error) {
	return s.f.WriteAt(p, off)
}

func (s *fileSpareSlot) Size() int64 {
	return s.size
}

func (s *fileSpareSlot) zero() error {
	zeros := make([]byte, 4096)
	var off int64
	for off < s.size {
		n := int64(len(zeros))
		if off+n > s.size {
			n = s.size - off
		}
		if _, err := s.f.WriteAt(zeros[:n], off); err != nil {
			return fmt.Errorf("simdevice: zero spare slot: %w", err)
		}
		off += n
	}
	return nil
}
