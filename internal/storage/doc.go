package storage

// Package storage persists the admin action audit trail: every change made
// through the settings wizard and the admin roster commands.
