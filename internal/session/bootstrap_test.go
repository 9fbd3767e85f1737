package session

import (
	"testing"

	"github.com/anthropics/hawkbit-go-client/internal/testutil"
)

func TestBootstrap_ConfirmsUnconfirmedImageThenOpensLog(t *testing.T) {
	bl := testutil.NewFakeBootloader(false, 4096)

	log, err := Bootstrap(bl, t.TempDir())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer log.Close()

	confirmed, err := bl.IsConfirmed()
	if err != nil {
		t.Fatalf("is-confirmed: %v", err)
	}
	if !confirmed {
		t.Fatal("expected the running image to have been confirmed")
	}
	if !bl.Erased() {
		t.Fatal("expected the spare bank to have been erased")
	}
}

func TestBootstrap_SkipsConfirmWhenAlreadyConfirmed(t *testing.T) {
	bl := testutil.NewFakeBootloader(true, 4096)
	bl.SetFailConfirm(true) // would fail Bootstrap if Confirm were called again

	log, err := Bootstrap(bl, t.TempDir())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	log.Close()
}

func TestBootstrap_SkipsEraseWhenAlreadyConfirmed(t *testing.T) {
	bl := testutil.NewFakeBootloader(true, 4096)
	bl.SetFailErase(true) // would fail Bootstrap if EraseSpareBank were called

	log, err := Bootstrap(bl, t.TempDir())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer log.Close()

	if bl.Erased() {
		t.Fatal("expected the spare bank not to be erased when already confirmed")
	}
}

func TestBootstrap_ConfirmFailureIsFatal(t *testing.T) {
	bl := testutil.NewFakeBootloader(false, 4096)
	bl.SetFailConfirm(true)

	if _, err := Bootstrap(bl, t.TempDir()); err == nil {
		t.Fatal("expected confirm failure to fail bootstrap")
	}
}

func TestBootstrap_EraseFailureIsFatal(t *testing.T) {
	bl := testutil.NewFakeBootloader(false, 4096)
	bl.SetFailErase(true)

	if _, err := Bootstrap(bl, t.TempDir()); err == nil {
		t.Fatal("expected erase failure to fail bootstrap")
	}
}

func TestCanTransition_RejectsOutOfOrderJumps(t *testing.T) {
	if CanTransition(BootstrapStateStart, BootstrapStateReady) {
		t.Fatal("expected Start -> Ready to be disallowed without the intermediate stages")
	}
	if !CanTransition(BootstrapStateOpeningActionLog, BootstrapStateReady) {
		t.Fatal("expected OpeningActionLog -> Ready to be allowed")
	}
}
