// Package sync owns the agent's reconciliation protocol against the
// central server: revision tracking, the check-then-write sync cycle,
// conflict prompts, the overwrite latch, and the background retry loop.
package sync

import (
	"context"
	"log"
	"os"
	"strconv"
	stdsync "sync"
	"time"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/models"
	"github.com/WellingtonFilho7/lumine-sync/internal/normalize"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type PromptType string

const (
	// PromptServerNew: the pre-check found the server ahead of this
	// device; the user must download before writing.
	PromptServerNew PromptType = "server-new"
	// PromptRevisionMismatch: the write was rejected because the
	// revision moved between pre-check and write.
	PromptRevisionMismatch PromptType = "revision-mismatch"
)

// Prompt is a blocking conflict-resolution question for the user. Only
// manual syncs raise prompts.
type Prompt struct {
	Type    PromptType `json:"type"`
	Message string     `json:"message"`
}

// State is the engine's externally visible state. DataRev only ever
// takes values reported by the server.
type State struct {
	Status           Status  `json:"status"`
	Notice           *Notice `json:"notice,omitempty"`
	Prompt           *Prompt `json:"prompt,omitempty"`
	OverwriteBlocked bool    `json:"overwriteBlocked"`
	DataRev          int64   `json:"dataRev"`
	PendingChanges   int     `json:"pendingChanges"`
	LastSync         string  `json:"lastSync,omitempty"`
	ReviewMode       bool    `json:"reviewMode"`
	Online           bool    `json:"online"`
}

// Remote is the transport the engine drives; *api.Client satisfies it.
type Remote interface {
	Pull(ctx context.Context) (*api.PullResponse, error)
	Sync(ctx context.Context, ifMatchRev int64, data api.Payload) (*api.SyncResponse, error)
}

type Config struct {
	// Probe reports connectivity; defaults to always-online.
	Probe func() bool
	// SyncDelay is how long after a local change the first automatic
	// sync fires; SyncInterval the recurring retry period.
	SyncDelay    time.Duration
	SyncInterval time.Duration
	// SuccessReset is how long the "success" status shows before the
	// engine returns to idle; WarningDismiss how long a warning notice
	// stays on screen before clearing itself.
	SuccessReset   time.Duration
	WarningDismiss time.Duration
	Logger         *log.Logger
}

func DefaultConfig() Config {
	return Config{
		Probe:          func() bool { return true },
		SyncDelay:      4 * time.Second,
		SyncInterval:   45 * time.Second,
		SuccessReset:   2 * time.Second,
		WarningDismiss: WarningDismiss,
		Logger:         log.New(os.Stderr, "[sync] ", log.LstdFlags),
	}
}

// Engine is the sync state machine. All state lives behind mu; network
// calls run outside the lock. A single-flight guard rejects a sync (or
// download) entering while another cycle is in flight.
type Engine struct {
	store  *db.DB
	remote Remote
	cfg    Config

	mu       stdsync.Mutex
	state    State
	inFlight bool
	gen      int // invalidates pending status-reset timers
	timer    *time.Timer
	kick     chan struct{}
}

func New(store *db.DB, remote Remote, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Probe == nil {
		cfg.Probe = def.Probe
	}
	if cfg.SyncDelay <= 0 {
		cfg.SyncDelay = def.SyncDelay
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.SuccessReset <= 0 {
		cfg.SuccessReset = def.SuccessReset
	}
	if cfg.WarningDismiss <= 0 {
		cfg.WarningDismiss = def.WarningDismiss
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}

	e := &Engine{
		store:  store,
		remote: remote,
		cfg:    cfg,
		kick:   make(chan struct{}, 1),
	}
	e.state.Status = StatusIdle

	// Restore persisted revision metadata.
	if rev, err := strconv.ParseInt(store.GetMeta(db.MetaDataRev), 10, 64); err == nil {
		e.state.DataRev = rev
	}
	e.state.LastSync = store.GetMeta(db.MetaLastSync)
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state
	s.Online = e.cfg.Probe()
	return s
}

// Online reports current connectivity.
func (e *Engine) Online() bool { return e.cfg.Probe() }

func (e *Engine) SetReviewMode(on bool) {
	e.mu.Lock()
	e.state.ReviewMode = on
	e.mu.Unlock()
}

// AddPending adjusts the count of local mutations not yet confirmed by
// the server. A positive delta also schedules the automatic sync.
func (e *Engine) AddPending(delta int) {
	e.mu.Lock()
	e.state.PendingChanges += delta
	if e.state.PendingChanges < 0 {
		e.state.PendingChanges = 0
	}
	e.mu.Unlock()
	if delta > 0 {
		select {
		case e.kick <- struct{}{}:
		default:
		}
	}
}

// AdoptRev records a server-reported revision from a single-entity
// push. Revisions never come from anywhere but the server.
func (e *Engine) AdoptRev(rev int64) {
	if rev <= 0 {
		return
	}
	e.mu.Lock()
	e.state.DataRev = rev
	e.persistLocked()
	e.mu.Unlock()
}

// Dismiss clears the current notice or prompt and returns to idle.
func (e *Engine) Dismiss() {
	e.mu.Lock()
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.state.Notice = nil
	e.state.Prompt = nil
	if e.state.Status == StatusError || e.state.Status == StatusSuccess {
		e.state.Status = StatusIdle
	}
	e.mu.Unlock()
}

// SyncWithServer runs the two-phase reconciliation protocol. A nil
// payload syncs the full local dataset; an explicit payload is sent
// as-is (a payload carrying both children and records counts as a
// full-state sync for pending-change accounting). Returns true only
// when the server accepted the write.
func (e *Engine) SyncWithServer(ctx context.Context, payload *api.Payload, mode Mode) bool {
	online := e.cfg.Probe()

	e.mu.Lock()
	e.state.Online = online
	if !online {
		e.reportLocked(Classify(false, nil))
		e.mu.Unlock()
		return false
	}
	if e.inFlight {
		e.mu.Unlock()
		return false
	}
	if e.state.OverwriteBlocked && payload == nil {
		// Blind retry while the latch is set: the user must download
		// first. A resolved sync supplies its payload explicitly.
		e.reportLocked(Notice{Message: msgDownloadRequired, Level: LevelWarning, AutoDismiss: e.cfg.WarningDismiss})
		e.mu.Unlock()
		return false
	}
	e.inFlight = true
	e.gen++
	e.state.Status = StatusSyncing
	e.state.Notice = nil
	prevRev := e.state.DataRev
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	// Pre-check phase: best effort. A failed pre-check is swallowed and
	// the write proceeds on the last-known revision.
	if resp, err := e.remote.Pull(ctx); err == nil && resp.Success {
		e.mu.Lock()
		e.state.DataRev = resp.DataRev
		e.state.OverwriteBlocked = false
		e.persistLocked()
		switch PrecheckDecision(prevRev, resp.DataRev, mode) {
		case PrecheckPrompt:
			e.state.Prompt = &Prompt{Type: PromptServerNew, Message: msgDownloadRequired}
			e.state.Status = StatusIdle
			e.mu.Unlock()
			return false
		case PrecheckLatch:
			e.state.OverwriteBlocked = true
			e.reportLocked(Notice{Message: msgDownloadRequired, Level: LevelWarning, AutoDismiss: e.cfg.WarningDismiss})
			e.mu.Unlock()
			return false
		}
		e.mu.Unlock()
	} else if err != nil {
		e.cfg.Logger.Printf("pre-check failed, writing with rev %d: %v", prevRev, err)
	}

	// Write phase, guarded by the revision established above.
	fullState := payload == nil
	var data api.Payload
	if payload == nil {
		children, err := e.store.Children()
		if err == nil {
			var recs []models.DailyRecord
			recs, err = e.store.Records()
			data = api.Payload{Children: children, Records: recs}
		}
		if err != nil {
			e.mu.Lock()
			e.reportLocked(Classify(true, err))
			e.mu.Unlock()
			return false
		}
		if data.Children == nil {
			data.Children = []models.Child{}
		}
		if data.Records == nil {
			data.Records = []models.DailyRecord{}
		}
	} else {
		data = *payload
		fullState = payload.Children != nil && payload.Records != nil
	}

	e.mu.Lock()
	token := e.state.DataRev
	e.mu.Unlock()

	resp, err := e.remote.Sync(ctx, token, data)
	if err != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		switch WriteDecision(err, mode) {
		case WritePromptMismatch:
			e.state.Prompt = &Prompt{Type: PromptRevisionMismatch, Message: msgRevisionMismatch}
			e.state.Status = StatusIdle
		case WriteLatchMismatch, WriteLatchDataLoss:
			e.state.OverwriteBlocked = true
			e.reportLocked(Classify(true, err))
		default:
			e.reportLocked(Classify(true, err))
		}
		return false
	}

	e.mu.Lock()
	if resp.DataRev > 0 {
		e.state.DataRev = resp.DataRev
	}
	e.state.OverwriteBlocked = false
	e.state.Notice = nil
	e.state.Prompt = nil
	e.state.LastSync = time.Now().Format(time.RFC3339)
	if fullState {
		e.state.PendingChanges = 0
	} else if e.state.PendingChanges > 0 {
		e.state.PendingChanges--
	}
	e.persistLocked()
	e.successLocked()
	e.mu.Unlock()

	e.cfg.Logger.Printf("synced, rev %d", resp.DataRev)
	return true
}

// Download replaces the local dataset with the server's, wholesale.
// This is the designated conflict-resolution action: it always wins
// over local state.
func (e *Engine) Download(ctx context.Context) bool {
	online := e.cfg.Probe()

	e.mu.Lock()
	e.state.Online = online
	if !online {
		e.reportLocked(Classify(false, nil))
		e.mu.Unlock()
		return false
	}
	if e.inFlight {
		e.mu.Unlock()
		return false
	}
	e.inFlight = true
	e.gen++
	e.state.Status = StatusSyncing
	e.state.Notice = nil
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	resp, err := e.remote.Pull(ctx)
	if err != nil {
		e.mu.Lock()
		e.reportLocked(Classify(true, err))
		e.mu.Unlock()
		return false
	}

	children, _ := normalize.Children(resp.Children)
	recs, _ := normalize.Records(resp.Records)
	if err := e.store.ReplaceAll(children, recs); err != nil {
		e.mu.Lock()
		e.reportLocked(Classify(true, err))
		e.mu.Unlock()
		return false
	}

	e.mu.Lock()
	e.state.DataRev = resp.DataRev
	e.state.OverwriteBlocked = false
	e.state.Notice = nil
	e.state.Prompt = nil
	e.state.PendingChanges = 0
	e.state.LastSync = time.Now().Format(time.RFC3339)
	e.persistLocked()
	e.successLocked()
	e.mu.Unlock()

	e.cfg.Logger.Printf("downloaded %d children, %d records, rev %d", len(children), len(recs), resp.DataRev)
	return true
}

// reportLocked surfaces a notice, scheduling its auto-dismiss when the
// notice is not critical. Caller holds mu.
func (e *Engine) reportLocked(n Notice) {
	e.gen++
	gen := e.gen
	e.state.Status = StatusError
	if n.AutoDismiss > 0 {
		n.AutoDismiss = e.cfg.WarningDismiss
	}
	e.state.Notice = &n
	if n.AutoDismiss > 0 {
		e.scheduleLocked(n.AutoDismiss, func() {
			e.mu.Lock()
			if e.gen == gen {
				e.state.Notice = nil
				e.state.Status = StatusIdle
			}
			e.mu.Unlock()
		})
	}
}

// successLocked transitions to success and schedules the reset back to
// idle. Caller holds mu.
func (e *Engine) successLocked() {
	e.gen++
	gen := e.gen
	e.state.Status = StatusSuccess
	e.scheduleLocked(e.cfg.SuccessReset, func() {
		e.mu.Lock()
		if e.gen == gen && e.state.Status == StatusSuccess {
			e.state.Status = StatusIdle
		}
		e.mu.Unlock()
	})
}

// scheduleLocked replaces the pending status-reset timer. At most one
// is ever outstanding; the gen counter guards any fire that races the
// Stop. Caller holds mu.
func (e *Engine) scheduleLocked(d time.Duration, fn func()) {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(d, fn)
}

// stopTimer cancels the pending status-reset timer on teardown.
func (e *Engine) stopTimer() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.mu.Unlock()
}

// persistLocked stores revision metadata so restarts resume where the
// last session stopped. Caller holds mu.
func (e *Engine) persistLocked() {
	if err := e.store.SetMeta(db.MetaDataRev, strconv.FormatInt(e.state.DataRev, 10)); err != nil {
		e.cfg.Logger.Printf("persist dataRev: %v", err)
	}
	if e.state.LastSync != "" {
		if err := e.store.SetMeta(db.MetaLastSync, e.state.LastSync); err != nil {
			e.cfg.Logger.Printf("persist lastSync: %v", err)
		}
	}
}
