package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the audit store.
//
// Driver values:
//   - "file": dependency-free append-only JSON Lines
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one admin action.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At      time.Time
	ActorID int64
	Action  string
	Detail  string
}
