package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
)

type Level string

const (
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// WarningDismiss is the default for how long a warning notice stays on
// screen before dismissing itself; Config.WarningDismiss overrides it.
// Critical notices never auto-dismiss.
const WarningDismiss = 5 * time.Second

// Notice is the user-facing descriptor of a sync failure.
// AutoDismiss == 0 means the notice stays until explicitly dismissed.
type Notice struct {
	Message     string
	Level       Level
	AutoDismiss time.Duration
}

// MarshalJSON reports the dismiss delay in milliseconds, the unit the
// site UI works in.
func (n Notice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message       string `json:"message"`
		Level         Level  `json:"level"`
		AutoDismissMs int64  `json:"autoDismissMs"`
	}{n.Message, n.Level, n.AutoDismiss.Milliseconds()})
}

const (
	msgOffline          = "Sem conexão. As alterações serão sincronizadas quando a conexão voltar."
	msgBadToken         = "Token de sincronização inválido ou expirado. Atualize a configuração do agente."
	msgForbidden        = "A origem deste dispositivo não é permitida pelo servidor."
	msgRevisionMismatch = "Os dados foram alterados em outro dispositivo. Baixe os dados mais recentes antes de sincronizar."
	msgServerDown       = "Servidor indisponível. Tente novamente em alguns minutos."
	msgCannotConnect    = "Não foi possível conectar ao servidor. Verifique a conexão."
	msgGeneric          = "Falha ao sincronizar. Tente novamente."
	msgDownloadRequired = "O servidor tem dados que este dispositivo ainda não viu. Baixe antes de sincronizar."
)

// Classify maps a failed sync outcome to a Notice. Total: every
// (online, error) combination yields exactly one descriptor, checked
// in a fixed precedence order.
func Classify(online bool, err error) Notice {
	if !online {
		return Notice{Message: msgOffline, Level: LevelWarning, AutoDismiss: WarningDismiss}
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == 401:
			return Notice{Message: msgBadToken, Level: LevelCritical}
		case apiErr.Status == 403:
			return Notice{Message: msgForbidden, Level: LevelCritical}
		case apiErr.Status == 409 && apiErr.Code == api.CodeRevisionMismatch:
			return Notice{Message: msgRevisionMismatch, Level: LevelCritical}
		case apiErr.Status == 409 && apiErr.Code == api.CodeDataLossPrevented:
			msg := msgDownloadRequired
			if apiErr.ServerCount != nil {
				msg = fmt.Sprintf("O servidor tem mais dados que este dispositivo (%d crianças, %d registros). Baixe antes de sincronizar.",
					apiErr.ServerCount.Children, apiErr.ServerCount.Records)
			}
			return Notice{Message: msg, Level: LevelCritical}
		case apiErr.Status >= 500:
			return Notice{Message: msgServerDown, Level: LevelCritical}
		}
	}

	if err != nil && isNetworkError(err) {
		return Notice{Message: msgCannotConnect, Level: LevelCritical}
	}

	msg := msgGeneric
	switch {
	case apiErr != nil && apiErr.Message != "":
		msg = apiErr.Message
	case apiErr != nil && apiErr.Details != "":
		msg = apiErr.Details
	case err != nil:
		msg = err.Error()
	}
	return Notice{Message: msg, Level: LevelWarning, AutoDismiss: WarningDismiss}
}

// Message fragments that identify a transport-level failure.
var netErrHints = []string{"failed to fetch", "network", "fetch", "connection refused", "no such host", "dial tcp", "timeout"}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range netErrHints {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
