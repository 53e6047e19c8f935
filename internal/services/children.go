// Package services holds the mutation hooks: user-initiated changes
// are applied to local state optimistically, counted as pending, and
// opportunistically pushed to the server. In online-only deployments
// mutations are instead rejected while offline and big updates become
// synchronous check-and-set syncs.
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/WellingtonFilho7/lumine-sync/internal/api"
	"github.com/WellingtonFilho7/lumine-sync/internal/db"
	"github.com/WellingtonFilho7/lumine-sync/internal/models"
	"github.com/WellingtonFilho7/lumine-sync/internal/normalize"
	"github.com/WellingtonFilho7/lumine-sync/internal/sync"
)

// ErrOffline is returned when an online-only deployment rejects a
// mutation because the connection is down.
var ErrOffline = errors.New("offline: mutation rejected in online-only mode")

// ErrSyncRejected is returned when an online-only mutation's
// check-and-set sync did not go through; local state was not touched.
var ErrSyncRejected = errors.New("server did not accept the change")

// Config holds deployment-mode flags shared by the mutation services.
type Config struct {
	// OnlineOnly trades offline capability for strict consistency:
	// mutations are rejected while offline and updates only apply
	// locally after the server confirms them.
	OnlineOnly bool
	Logger     *log.Logger
}

// Children applies child mutations.
type Children struct {
	store  *db.DB
	engine *sync.Engine
	remote *api.Client
	cfg    Config
}

func NewChildren(store *db.DB, engine *sync.Engine, remote *api.Client, cfg Config) *Children {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Children{store: store, engine: engine, remote: remote, cfg: cfg}
}

// Add creates a child from a raw payload. The child is stored locally
// right away; when online, a single-entity push follows and merges back
// the server-assigned childId. On push failure the child stays queued
// for the background sync.
func (s *Children) Add(ctx context.Context, raw map[string]any) (models.Child, error) {
	online := s.engine.Online()
	if s.cfg.OnlineOnly && !online {
		return models.Child{}, ErrOffline
	}

	child, _ := normalize.Child(raw)
	if child.ID == "" {
		child.ID = uuid.NewString()
	}
	if child.EnrollmentStatus == "" {
		child.EnrollmentStatus = models.StatusPreRegistered
	}

	if err := s.store.SaveChild(&child); err != nil {
		return models.Child{}, fmt.Errorf("save child: %w", err)
	}
	s.engine.AddPending(1)

	if online {
		resp, err := s.remote.AddChild(ctx, child)
		if err != nil {
			// Leave the optimistic write queued; the background loop
			// retries it.
			s.cfg.Logger.Printf("addChild push failed, queued: %v", err)
			return child, nil
		}
		if resp.ChildID != "" {
			child.ChildID = resp.ChildID
			if err := s.store.SaveChild(&child); err != nil {
				s.cfg.Logger.Printf("merge childId: %v", err)
			}
		}
		s.engine.AdoptRev(resp.DataRev)
		s.engine.AddPending(-1)
	}
	return child, nil
}

// Update merges a raw payload over an existing child. A status change
// appends to the enrollment history; the trail itself is append-only.
func (s *Children) Update(ctx context.Context, id string, raw map[string]any) (models.Child, error) {
	existing, err := s.store.GetChild(id)
	if err != nil {
		return models.Child{}, fmt.Errorf("child %s: %w", id, err)
	}

	merged := normalize.AsMap(*existing)
	for k, v := range raw {
		merged[k] = v
	}
	merged["id"] = existing.ID
	next, _ := normalize.Child(merged)
	next.CreatedAt = existing.CreatedAt
	if next.ChildID == "" {
		next.ChildID = existing.ChildID
	}
	if next.EnrollmentStatus != existing.EnrollmentStatus {
		next.EnrollmentHistory = append(next.EnrollmentHistory, models.HistoryEntry{
			Date:   time.Now().Format("2006-01-02"),
			Action: next.EnrollmentStatus,
		})
	}

	if s.cfg.OnlineOnly {
		// Check-and-set: only apply locally after the server accepts
		// the full next state.
		if !s.engine.Online() {
			return models.Child{}, ErrOffline
		}
		payload, err := s.fullPayloadWith(next)
		if err != nil {
			return models.Child{}, err
		}
		if !s.engine.SyncWithServer(ctx, payload, sync.ModeManual) {
			return models.Child{}, ErrSyncRejected
		}
		if err := s.store.SaveChild(&next); err != nil {
			return models.Child{}, fmt.Errorf("save child: %w", err)
		}
		return next, nil
	}

	if err := s.store.SaveChild(&next); err != nil {
		return models.Child{}, fmt.Errorf("save child: %w", err)
	}
	s.engine.AddPending(1)
	return next, nil
}

// Delete removes a child and cascades to its daily records.
func (s *Children) Delete(ctx context.Context, id string) error {
	if s.cfg.OnlineOnly {
		if !s.engine.Online() {
			return ErrOffline
		}
		resp, err := s.remote.DeleteChild(ctx, id)
		if err != nil {
			return fmt.Errorf("delete child: %w", err)
		}
		s.engine.AdoptRev(resp.DataRev)
		return s.store.DeleteChildCascade(id)
	}

	if err := s.store.DeleteChildCascade(id); err != nil {
		return err
	}
	s.engine.AddPending(1)

	if s.engine.Online() {
		resp, err := s.remote.DeleteChild(ctx, id)
		if err != nil {
			s.cfg.Logger.Printf("deleteChild push failed, queued: %v", err)
			return nil
		}
		s.engine.AdoptRev(resp.DataRev)
		s.engine.AddPending(-1)
	}
	return nil
}

// fullPayloadWith builds the full-state payload with next substituted
// into (or appended to) the current child collection.
func (s *Children) fullPayloadWith(next models.Child) (*api.Payload, error) {
	children, err := s.store.Children()
	if err != nil {
		return nil, err
	}
	replaced := false
	for i := range children {
		if children[i].ID == next.ID {
			children[i] = next
			replaced = true
			break
		}
	}
	if !replaced {
		children = append(children, next)
	}
	recs, err := s.store.Records()
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []models.DailyRecord{}
	}
	return &api.Payload{Children: children, Records: recs}, nil
}
