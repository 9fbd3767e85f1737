package simdevice

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileBootloader_StartsUnconfirmed(t *testing.T) {
	bl, err := NewFileBootloader(t.TempDir(), 4096)
	if err != nil {
		t.Fatalf("new bootloader: %v", err)
	}

	confirmed, err := bl.IsConfirmed()
	if err != nil {
		t.Fatalf("is-confirmed: %v", err)
	}
	if confirmed {
		t.Fatal("expected a freshly initialized bootloader to be unconfirmed")
	}

	if err := bl.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	confirmed, err = bl.IsConfirmed()
	if err != nil {
		t.Fatalf("is-confirmed after confirm: %v", err)
	}
	if !confirmed {
		t.Fatal("expected the image to be confirmed after Confirm")
	}
}

func TestFileBootloader_PersistsConfirmationAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	bl, err := NewFileBootloader(dir, 4096)
	if err != nil {
		t.Fatalf("new bootloader: %v", err)
	}
	if err := bl.Confirm(); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	reopened, err := NewFileBootloader(dir, 4096)
	if err != nil {
		t.Fatalf("reopen bootloader: %v", err)
	}
	confirmed, err := reopened.IsConfirmed()
	if err != nil {
		t.Fatalf("is-confirmed: %v", err)
	}
	if !confirmed {
		t.Fatal("expected confirmation to survive a reopen")
	}
}

func TestFileBootloader_SpareSlotWriteAndErase(t *testing.T) {
	bl, err := NewFileBootloader(t.TempDir(), 16)
	if err != nil {
		t.Fatalf("new bootloader: %v", err)
	}

	slot := bl.SpareSlot()
	if slot.Size() != 16 {
		t.Fatalf("expected spare slot size 16, got %d", slot.Size())
	}
	if _, err := slot.WriteAt([]byte{1, 2, 3, 4}, 0); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := bl.EraseSpareBank(); err != nil {
		t.Fatalf("erase: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(bl.dir, "spare.bin"))
	if err != nil {
		t.Fatalf("read spare file: %v", err)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("expected byte %d to be erased, got %d", i, b)
		}
	}
}

func TestFileBootloader_RequestSwapIncrementsCount(t *testing.T) {
	bl, err := NewFileBootloader(t.TempDir(), 4096)
	if err != nil {
		t.Fatalf("new bootloader: %v", err)
	}

	if err := bl.RequestSwap(); err != nil {
		t.Fatalf("request swap: %v", err)
	}
	if err := bl.RequestSwap(); err != nil {
		t.Fatalf("request swap: %v", err)
	}
	if bl.swapCount != 2 {
		t.Fatalf("expected swap count 2, got %d", bl.swapCount)
	}
}
