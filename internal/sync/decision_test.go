package sync

import (
	"errors"
	"testing"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
)

func TestPrecheckDecision(t *testing.T) {
	cases := []struct {
		prev, server int64
		mode         Mode
		want         PrecheckOutcome
	}{
		{3, 3, ModeManual, PrecheckProceed},
		{3, 2, ModeManual, PrecheckProceed},
		{1, 2, ModeManual, PrecheckPrompt},
		{1, 2, ModeAuto, PrecheckLatch},
		{0, 0, ModeAuto, PrecheckProceed},
	}
	for _, tc := range cases {
		if got := PrecheckDecision(tc.prev, tc.server, tc.mode); got != tc.want {
			t.Errorf("PrecheckDecision(%d, %d, %s) = %v, want %v", tc.prev, tc.server, tc.mode, got, tc.want)
		}
	}
}

func TestWriteDecision(t *testing.T) {
	mismatch := &api.Error{Status: 409, Code: api.CodeRevisionMismatch}
	dataLoss := &api.Error{Status: 409, Code: api.CodeDataLossPrevented}

	cases := []struct {
		name string
		err  error
		mode Mode
		want WriteOutcome
	}{
		{"manual mismatch prompts", mismatch, ModeManual, WritePromptMismatch},
		{"auto mismatch latches", mismatch, ModeAuto, WriteLatchMismatch},
		{"data loss latches either way", dataLoss, ModeManual, WriteLatchDataLoss},
		{"data loss latches auto", dataLoss, ModeAuto, WriteLatchDataLoss},
		{"other api error reports", &api.Error{Status: 500}, ModeManual, WriteReport},
		{"transport error reports", errors.New("connection reset"), ModeAuto, WriteReport},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WriteDecision(tc.err, tc.mode); got != tc.want {
				t.Errorf("WriteDecision = %v, want %v", got, tc.want)
			}
		})
	}
}
