package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Env carries the process-environment overlay. Values set here take
// precedence over the file so deployments can keep secrets out of the
// config on disk.
type Env struct {
	Token    string `envconfig:"TELEGRAM_BOT_TOKEN"`
	GroupID  string `envconfig:"TELEGRAM_GROUP_ID"`
	AdminIDs string `envconfig:"TELEGRAM_ADMIN_IDS"`
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if env.Token != "" {
		cfg.Telegram.Token = env.Token
	}
	if env.GroupID != "" {
		cfg.Telegram.Group = env.GroupID
	}
	if env.AdminIDs != "" {
		ids, err := parseAdminIDs(env.AdminIDs)
		if err != nil {
			return fmt.Errorf("TELEGRAM_ADMIN_IDS: %w", err)
		}
		cfg.Telegram.AdminIDs = ids
	}
	return nil
}

func parseAdminIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
