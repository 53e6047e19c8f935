package sync

import (
	"errors"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
)

// Mode distinguishes a user-initiated sync from a background retry.
// Automatic syncs never interrupt the user with a prompt; they latch
// the overwrite block and surface a passive warning instead.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
)

// The two-phase protocol (revision pre-check, then a write guarded by
// ifMatchRev) is expressed as pure decision functions so it can be
// unit-tested without a transport.

type PrecheckOutcome int

const (
	// PrecheckProceed: server revision is not ahead; continue to the
	// write phase.
	PrecheckProceed PrecheckOutcome = iota
	// PrecheckPrompt: server is ahead and the user asked for this sync;
	// block with a "download first" prompt.
	PrecheckPrompt
	// PrecheckLatch: server is ahead during a background sync; latch
	// the overwrite block and warn passively.
	PrecheckLatch
)

// PrecheckDecision evaluates the revision pre-check. prevRev is the
// revision known before the sync began; serverRev what the pre-check
// reported.
func PrecheckDecision(prevRev, serverRev int64, mode Mode) PrecheckOutcome {
	if serverRev <= prevRev {
		return PrecheckProceed
	}
	if mode == ModeManual {
		return PrecheckPrompt
	}
	return PrecheckLatch
}

type WriteOutcome int

const (
	// WriteReport: plain failure; classify and report.
	WriteReport WriteOutcome = iota
	// WritePromptMismatch: revision conflict on a manual sync; prompt
	// the user to download.
	WritePromptMismatch
	// WriteLatchMismatch: revision conflict on a background sync; latch
	// and report.
	WriteLatchMismatch
	// WriteLatchDataLoss: the server holds strictly more data than this
	// write carries; latch and report with the server's counts.
	WriteLatchDataLoss
)

// WriteDecision evaluates a write-phase failure. Local state is never
// force-overwritten: every conflict outcome requires an explicit
// download before the next write.
func WriteDecision(err error, mode Mode) WriteOutcome {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return WriteReport
	}
	switch {
	case apiErr.Status == 409 && apiErr.Code == api.CodeRevisionMismatch:
		if mode == ModeManual {
			return WritePromptMismatch
		}
		return WriteLatchMismatch
	case apiErr.Status == 409 && apiErr.Code == api.CodeDataLossPrevented:
		return WriteLatchDataLoss
	default:
		return WriteReport
	}
}
