package sync

import (
	"errors"
	"strings"
	"testing"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
)

// TestClassifyPrecedence walks the documented decision table in order;
// every input tuple yields exactly one descriptor.
func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		online   bool
		err      error
		level    Level
		sticky   bool
		contains string
	}{
		{"offline", false, nil, LevelWarning, false, "conexão"},
		{"unauthorized", true, &api.Error{Status: 401}, LevelCritical, true, "oken"},
		{"forbidden", true, &api.Error{Status: 403}, LevelCritical, true, "origem"},
		{"revision mismatch", true, &api.Error{Status: 409, Code: api.CodeRevisionMismatch}, LevelCritical, true, "outro dispositivo"},
		{"data loss prevented", true, &api.Error{Status: 409, Code: api.CodeDataLossPrevented, ServerCount: &api.Counts{Children: 4, Records: 9}}, LevelCritical, true, "4 crianças, 9 registros"},
		{"server fault", true, &api.Error{Status: 503}, LevelCritical, true, "indisponível"},
		{"network failure", true, errors.New("dial tcp 10.0.0.1:443: connection refused"), LevelCritical, true, "conectar"},
		{"fallback payload message", true, &api.Error{Status: 422, Message: "payload inválido"}, LevelWarning, false, "payload inválido"},
		{"fallback details", true, &api.Error{Status: 422, Details: "campo x"}, LevelWarning, false, "campo x"},
		{"fallback generic", true, nil, LevelWarning, false, "sincronizar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := Classify(tc.online, tc.err)
			if n.Level != tc.level {
				t.Errorf("level = %q, want %q", n.Level, tc.level)
			}
			if tc.sticky && n.AutoDismiss != 0 {
				t.Errorf("critical notice must not auto-dismiss, got %v", n.AutoDismiss)
			}
			if !tc.sticky && n.AutoDismiss == 0 {
				t.Error("warning notice must auto-dismiss")
			}
			if !strings.Contains(n.Message, tc.contains) {
				t.Errorf("message %q does not mention %q", n.Message, tc.contains)
			}
		})
	}
}

// A 409 with an unknown code is not a conflict: it falls through to
// the fallback branch.
func TestClassifyUnknownConflictCode(t *testing.T) {
	n := Classify(true, &api.Error{Status: 409, Code: "SOMETHING_ELSE", Message: "weird"})
	if n.Level != LevelWarning {
		t.Errorf("level = %q, want warning", n.Level)
	}
	if n.Message != "weird" {
		t.Errorf("message = %q, want payload message", n.Message)
	}
}

// Offline wins over everything else.
func TestClassifyOfflineFirst(t *testing.T) {
	n := Classify(false, &api.Error{Status: 401})
	if n.Level != LevelWarning {
		t.Errorf("offline must classify as warning even with an auth error, got %q", n.Level)
	}
}
