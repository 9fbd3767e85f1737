package session

import (
	"fmt"

	"github.com/anthropics/hawkbit-go-client/internal/actionlog"
	"github.com/anthropics/hawkbit-go-client/internal/bootloader"
)

// BootstrapState is a stage of the process-start sequence
// (original_source/subsys/mgmt/hawkbit/hawkbit.c's hawkbit_init): if the
// running image isn't confirmed yet, confirm it and erase the
// previously-used spare bank; either way, then open the persistent action
// log. Unlike the per-poll Orchestrator, this
// sequence genuinely branches on failure (any stage failing is fatal to
// initialization, but which stage failed matters for the error returned),
// which is what justifies an adjacency-map transition table here instead of
// a straight-line function.
type BootstrapState int

const (
	BootstrapStateStart BootstrapState = iota
	BootstrapStateConfirmingImage
	BootstrapStateErasingSpareBank
	BootstrapStateOpeningActionLog
	BootstrapStateReady
	BootstrapStateFailed
)

var bootstrapTransitions = map[BootstrapState]map[BootstrapState]struct{}{
	BootstrapStateStart: {
		BootstrapStateConfirmingImage: {},
	},
	BootstrapStateConfirmingImage: {
		BootstrapStateErasingSpareBank: {},
		BootstrapStateOpeningActionLog: {},
		BootstrapStateFailed:           {},
	},
	BootstrapStateErasingSpareBank: {
		BootstrapStateOpeningActionLog: {},
		BootstrapStateFailed:           {},
	},
	BootstrapStateOpeningActionLog: {
		BootstrapStateReady:  {},
		BootstrapStateFailed: {},
	},
}

// CanTransition reports whether a bootstrap state transition is valid.
func CanTransition(from, to BootstrapState) bool {
	allowed, ok := bootstrapTransitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Bootstrap runs the process-start sequence against bl and opens the
// persistent action log at logDir, returning it on success. A failure at
// any stage is fatal to initialization, matching spec.md §6's
// "Initialization" paragraph.
func Bootstrap(bl bootloader.Bootloader, logDir string) (*actionlog.Log, error) {
	state := BootstrapStateStart

	state = advance(state, BootstrapStateConfirmingImage)
	confirmed, err := bl.IsConfirmed()
	if err != nil {
		advance(state, BootstrapStateFailed)
		return nil, fmt.Errorf("bootstrap: query image confirmation: %w", err)
	}
	if !confirmed {
		if err := bl.Confirm(); err != nil {
			advance(state, BootstrapStateFailed)
			return nil, fmt.Errorf("bootstrap: confirm running image: %w", err)
		}

		state = advance(state, BootstrapStateErasingSpareBank)
		if err := bl.EraseSpareBank(); err != nil {
			advance(state, BootstrapStateFailed)
			return nil, fmt.Errorf("bootstrap: erase spare bank: %w", err)
		}
	}

	state = advance(state, BootstrapStateOpeningActionLog)
	log, err := actionlog.Open(logDir)
	if err != nil {
		advance(state, BootstrapStateFailed)
		return nil, fmt.Errorf("bootstrap: open action log: %w", err)
	}

	advance(state, BootstrapStateReady)
	return log, nil
}

// advance transitions from current to next if the move is allowed, and
// panics otherwise — a violated adjacency invariant here is a programming
// error in Bootstrap's own sequencing, not a runtime condition to recover
// from.
func advance(current, next BootstrapState) BootstrapState {
	if !CanTransition(current, next) {
		panic(fmt.Sprintf("bootstrap: illegal transition %d -> %d", current, next))
	}
	return next
}
