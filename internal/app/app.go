// Package app wires the bot together: config, logging, the Telegram
// adapter, the settings wizard, the greeter, and the warning broadcast.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"guardbot/internal/auth"
	"guardbot/internal/broadcast"
	"guardbot/internal/config"
	"guardbot/internal/greeter"
	"guardbot/internal/media"
	"guardbot/internal/runtime/supervisor"
	"guardbot/internal/settings"
	"guardbot/internal/storage"
	kit "guardbot/internal/transport"
	telegram "guardbot/internal/transport/telegram/adapter"
	logx "guardbot/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter kit.Adapter

	groupID int64
	live    *settings.Store
	states  *settings.States
	static  *auth.StaticGate
	gate    auth.Gate
	audit   settings.AuditSink
	wizard  *settings.Wizard
	greeter *greeter.Greeter
	bcast   *broadcast.Service

	updates chan kit.Update
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	groupID, err := parseGroupID(cfg.Telegram.Group)
	if err != nil {
		return nil, err
	}

	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:          cfg.Telegram.Token,
		PollTimeout:    pollTimeout,
		SendRatePerSec: cfg.Telegram.SendRatePerSec,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	// Audit store (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("audit storage enabled", logx.String("driver", sc.Driver))
	}

	live := settings.NewStore(settings.Snapshot{
		Greeting:        cfg.Defaults.Greeting,
		WarningText:     cfg.Defaults.WarningText,
		WarningImage:    cfg.Defaults.WarningImage,
		IntervalMinutes: cfg.Defaults.IntervalMinutes,
	})
	states := settings.NewStates()
	images := media.NewStore(cfg.Defaults.AssetsDir)

	static := auth.NewStaticGate(cfg.Telegram.AdminIDs, log.With(logx.String("comp", "auth")))
	gate := auth.NewRosterGate(ad, groupID, static, log.With(logx.String("comp", "auth")))

	bcast := broadcast.New(ad, live, groupID, log.With(logx.String("comp", "broadcast")))

	var audit settings.AuditSink
	if store != nil {
		audit = &auditRecorder{store: store, log: log.With(logx.String("comp", "audit"))}
	}
	wizard := settings.NewWizard(ad, gate, states, live, bcast, images, audit,
		log.With(logx.String("comp", "settings")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		groupID: groupID,
		live:    live,
		states:  states,
		static:  static,
		gate:    gate,
		audit:   audit,
		wizard:  wizard,
		greeter: greeter.New(ad, live, log.With(logx.String("comp", "greeter"))),
		bcast:   bcast,
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := parseGroupID(cfg.Telegram.Group); err != nil {
			return err
		}
		if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
			return err
		}
		if reason := settings.ValidateInterval(cfg.Defaults.IntervalMinutes); reason != "" {
			return fmt.Errorf("defaults.interval_minutes: %s", reason)
		}
		if reason := settings.ValidateWarningText(cfg.Defaults.WarningText); reason != "" {
			return fmt.Errorf("defaults.warning_text: %s", reason)
		}
		if _, _, err := mapStorageConfig(cfg); err != nil {
			return err
		}
		return nil
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	if err := a.bcast.Start(a.sup.Context()); err != nil {
		return err
	}

	a.sup.Go0("settings.sweep", a.states.Run)
	a.sup.Go("updates.dispatch", a.dispatchLoop)

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyReload(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.Int64("group_id", a.groupID))
	return nil
}

// applyReload pushes a reloaded config into the running components. Logging
// and the static admin list apply live; the defaults section only seeds the
// startup snapshot, so changes there need a restart.
func (a *App) applyReload(oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	for _, s := range sections {
		switch s {
		case "storage":
			a.log.Warn("storage config changed; restart required for changes to take effect")
		case "defaults":
			a.log.Warn("defaults config changed; values apply on next restart (use /settings for live changes)")
		}
	}

	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
	})
	a.static.Replace(newCfg.Telegram.AdminIDs)

	a.log.Info("config reloaded", logx.String("changed", strings.Join(sections, ",")))
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Bounded shutdown steps so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)", logx.String("name", name))
		}
	}

	step("broadcast", 2*time.Second, a.bcast.Stop)
	step("adapter", 2*time.Second, a.adapter.Stop)
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, a.sup.Wait)

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}

// auditRecorder adapts the storage layer to the wizard's fire-and-forget
// audit hook. Persistence failures are logged, never surfaced to the admin.
type auditRecorder struct {
	store storage.Store
	log   logx.Logger
}

func (r *auditRecorder) Record(ctx context.Context, actorID int64, action, detail string) {
	err := r.store.AppendAudit(ctx, storage.AuditEntry{
		At:      time.Now(),
		ActorID: actorID,
		Action:  action,
		Detail:  detail,
	})
	if err != nil {
		r.log.Warn("audit append failed", logx.String("action", action), logx.Err(err))
	}
}

func parseGroupID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("telegram.group is required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.group: invalid chat ID %q", raw)
	}
	return id, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, true, nil
}
