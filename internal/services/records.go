package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/models"
	"github.com/WellingtonFilho7/lumine-sync/internal/records"
	"github.com/WellingtonFilho7/lumine-sync/internal/sync"
)

// Records applies daily-record mutations under the one-record-per-
// child-per-day rule.
type Records struct {
	store  *db.DB
	engine *sync.Engine
	remote *api.Client
	cfg    Config
}

func NewRecords(store *db.DB, engine *sync.Engine, remote *api.Client, cfg Config) *Records {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Records{store: store, engine: engine, remote: remote, cfg: cfg}
}

// Add upserts a record for (child, day). A brand-new record goes out
// as a single-entity push; an edit to an existing day defers to a bulk
// sync carrying the whole next collection, so the server applies the
// merge atomically.
func (s *Records) Add(ctx context.Context, raw map[string]any) (models.DailyRecord, error) {
	online := s.engine.Online()
	if s.cfg.OnlineOnly && !online {
		return models.DailyRecord{}, ErrOffline
	}

	current, err := s.store.Records()
	if err != nil {
		return models.DailyRecord{}, fmt.Errorf("load records: %w", err)
	}
	res := records.Upsert(current, raw, time.Now())

	if err := s.store.SaveRecord(&res.Record); err != nil {
		return models.DailyRecord{}, fmt.Errorf("save record: %w", err)
	}
	s.engine.AddPending(1)

	if !online {
		return res.Record, nil
	}

	if !res.Existed {
		resp, err := s.remote.AddRecord(ctx, res.Record)
		if err != nil {
			s.cfg.Logger.Printf("addRecord push failed, queued: %v", err)
			return res.Record, nil
		}
		s.engine.AdoptRev(resp.DataRev)
		s.engine.AddPending(-1)
		return res.Record, nil
	}

	if !s.engine.Snapshot().ReviewMode {
		s.engine.SyncWithServer(ctx, &api.Payload{Records: res.Next}, sync.ModeAuto)
	}
	return res.Record, nil
}
