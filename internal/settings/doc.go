// Package settings holds the live bot configuration (warning text, image,
// broadcast interval, greeting) and the admin-only inline wizard that edits
// it at runtime. Wizard changes live in memory only; the config file seeds
// the initial snapshot at startup.
package settings
