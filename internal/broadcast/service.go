// Package broadcast sends the recurring warning message (image plus
// Markdown caption) to the monitored group. Exactly one schedule entry is
// live at a time; Reschedule atomically swaps it for a new interval.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"guardbot/internal/settings"
	"guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

type Service struct {
	ad    transport.Adapter
	store *settings.Store
	group transport.ChatTarget
	log   logx.Logger

	mu      sync.Mutex
	c       *cron.Cron
	entry   cron.EntryID
	started bool
	runCtx  context.Context
}

func New(ad transport.Adapter, store *settings.Store, groupID int64, log logx.Logger) *Service {
	return &Service{
		ad:    ad,
		store: store,
		group: transport.ChatTarget{ChatID: groupID},
		log:   log,
	}
}

// Start arms the broadcast with the store's current interval.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.c = cron.New()
	s.runCtx = ctx

	minutes := s.store.Get().IntervalMinutes
	if err := s.armLocked(ctx, minutes); err != nil {
		s.c = nil
		return err
	}
	s.c.Start()
	s.started = true
	s.log.Info("broadcast started", logx.Int("interval_minutes", minutes))
	return nil
}

// Reschedule swaps the live entry for one firing every minutes. Calling it
// with the current interval re-arms the timer, which also resets the time
// until the next send.
func (s *Service) Reschedule(minutes int) error {
	if reason := settings.ValidateInterval(minutes); reason != "" {
		return fmt.Errorf("broadcast: %s", reason)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.New("broadcast: not started")
	}
	old := s.entry
	if err := s.armLocked(s.runCtx, minutes); err != nil {
		return err
	}
	s.c.Remove(old)
	s.log.Info("broadcast rescheduled", logx.Int("interval_minutes", minutes))
	return nil
}

// Stop halts the schedule and waits for an in-flight send to finish.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	stopCtx := s.c.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	s.c = nil
	s.started = false
	s.log.Info("broadcast stopped")
	return nil
}

func (s *Service) armLocked(ctx context.Context, minutes int) error {
	spec := fmt.Sprintf("@every %s", (time.Duration(minutes) * time.Minute).String())
	id, err := s.c.AddFunc(spec, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("broadcast: add schedule: %w", err)
	}
	s.entry = id
	return nil
}

// Entries reports how many schedule entries are live. Test hook.
func (s *Service) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return 0
	}
	return len(s.c.Entries())
}

// tick sends one warning broadcast. Failures are logged and swallowed so a
// transient API error never kills the schedule.
func (s *Service) tick(ctx context.Context) {
	snap := s.store.Get()
	_, err := s.ad.SendPhoto(ctx, s.group, transport.PhotoSource{
		Path:    snap.WarningImage,
		Caption: snap.WarningText,
	}, &transport.SendOptions{ParseMode: "Markdown"})
	if err != nil {
		s.log.Error("warning broadcast failed", logx.Err(err))
		return
	}
	s.log.Debug("warning broadcast sent")
}
