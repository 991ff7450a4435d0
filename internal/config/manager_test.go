package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, content string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return NewManager(path)
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	m := writeConfig(t, "config.json", `{
		"telegram": {"token": "t0k3n", "group": "-1001234", "poll_timeout": "15s", "admin_ids": [1, 2]},
		"defaults": {"greeting": "Welcome", "interval_minutes": 30},
		"logging": {"level": "debug", "console": true}
	}`)

	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "t0k3n" || cfg.Telegram.Group != "-1001234" {
		t.Fatalf("telegram section = %+v", cfg.Telegram)
	}
	if len(cfg.Telegram.AdminIDs) != 2 {
		t.Fatalf("admin_ids = %v", cfg.Telegram.AdminIDs)
	}
	if cfg.Defaults.Greeting != "Welcome" || cfg.Defaults.IntervalMinutes != 30 {
		t.Fatalf("defaults = %+v", cfg.Defaults)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	m := writeConfig(t, "config.yaml", `
telegram:
  token: abc
  group: "-100999"
defaults:
  warning_text: "be careful"
`)

	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "abc" || cfg.Telegram.Group != "-100999" {
		t.Fatalf("telegram section = %+v", cfg.Telegram)
	}
	if cfg.Defaults.WarningText != "be careful" {
		t.Fatalf("defaults = %+v", cfg.Defaults)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()

	m := writeConfig(t, "config.json", `{"telegram": {"token": "x", "group": "-1"}}`)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Defaults.Greeting == "" || cfg.Defaults.WarningText == "" {
		t.Fatalf("empty defaults not filled: %+v", cfg.Defaults)
	}
	if cfg.Defaults.IntervalMinutes != 5 {
		t.Fatalf("IntervalMinutes = %d, want 5", cfg.Defaults.IntervalMinutes)
	}
	if cfg.Defaults.AssetsDir != "./assets" {
		t.Fatalf("AssetsDir = %q", cfg.Defaults.AssetsDir)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := writeConfig(t, "config.json", `{"telegram": {"token": "x"}, "webhooks": {}}`)
	if _, err := m.Parse(); err == nil {
		t.Fatalf("unknown top-level key accepted")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_GROUP_ID", "-100555")
	t.Setenv("TELEGRAM_ADMIN_IDS", "10, 20,30")

	cfg := &Config{}
	cfg.Telegram.Token = "file-token"
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("Token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Telegram.Group != "-100555" {
		t.Fatalf("Group = %q", cfg.Telegram.Group)
	}
	if len(cfg.Telegram.AdminIDs) != 3 || cfg.Telegram.AdminIDs[2] != 30 {
		t.Fatalf("AdminIDs = %v", cfg.Telegram.AdminIDs)
	}
}

func TestApplyEnvBadAdminIDs(t *testing.T) {
	t.Setenv("TELEGRAM_ADMIN_IDS", "10,notanumber")

	if err := ApplyEnv(&Config{}); err == nil {
		t.Fatalf("bad TELEGRAM_ADMIN_IDS accepted")
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{}
	oldCfg.ApplyDefaults()
	newCfg := &Config{}
	newCfg.ApplyDefaults()
	newCfg.Logging.Level = "debug"
	newCfg.Telegram.AdminIDs = []int64{1}

	sections, _ := SummarizeConfigChange(oldCfg, newCfg)
	want := map[string]bool{"logging": true, "telegram": true}
	if len(sections) != len(want) {
		t.Fatalf("sections = %v", sections)
	}
	for _, s := range sections {
		if !want[s] {
			t.Fatalf("unexpected section %q in %v", s, sections)
		}
	}

	if sections, _ := SummarizeConfigChange(newCfg, newCfg); len(sections) != 0 {
		t.Fatalf("self-diff reported changes: %v", sections)
	}
}
