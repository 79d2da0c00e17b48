package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"remindbot/internal/config"
	"remindbot/internal/dispatch"
	"remindbot/internal/intake"
	"remindbot/internal/runtime/supervisor"
	"remindbot/internal/storage"
	kit "remindbot/internal/transport"
	"remindbot/internal/transport/telegram"
	"remindbot/internal/transport/whatsapp"
	logx "remindbot/pkg/logx"
)

// App wires config, storage, channel adapters, intake, and the dispatcher
// into one process lifecycle.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	store storage.Store

	registry *kit.Registry
	adapters []kit.Adapter

	intake *intake.Service
	disp   *dispatch.Dispatcher

	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
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

	// Storage is mandatory: reminders survive restarts only through the store.
	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return nil, errors.New("storage.driver is required (sqlite, file, or memory)")
		}
		return nil, err
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	adapters, err := buildAdapters(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if len(adapters) == 0 {
		_ = store.Close()
		return nil, errors.New("no channel enabled: enable telegram and/or whatsapp in config")
	}
	registry := kit.NewRegistry(adapters...)

	dcfg, err := mapDispatcherConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		store:    store,
		registry: registry,
		adapters: adapters,
		intake:   intake.New(store, registry, log.With(logx.String("comp", "intake"))),
		disp:     dispatch.New(dcfg, store, registry, log.With(logx.String("comp", "dispatch"))),
		updates:  make(chan kit.Update, 256),
	}, nil
}

func buildAdapters(cfg *config.Config, log logx.Logger) ([]kit.Adapter, error) {
	var adapters []kit.Adapter

	if cfg.Telegram.Enabled {
		pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		ad, err := telegram.New(telegram.Config{
			Token:       cfg.Telegram.Token,
			PollTimeout: pollTimeout,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, ad)
	}

	if cfg.WhatsApp.Enabled {
		ad, err := whatsapp.New(whatsapp.Config{
			AccountSID:  cfg.WhatsApp.AccountSID,
			AuthToken:   cfg.WhatsApp.AuthToken,
			FromNumber:  cfg.WhatsApp.FromNumber,
			WebhookAddr: cfg.WhatsApp.WebhookAddr,
		}, log.With(logx.String("comp", "whatsapp")))
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, ad)
	}

	return adapters, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapDispatcherConfig(cfg *config.Config) (dispatch.Config, error) {
	sched, err := dispatch.ParseSchedule(cfg.Dispatcher.Schedule)
	if err != nil {
		return dispatch.Config{}, fmt.Errorf("dispatcher.schedule: %w", err)
	}
	if cfg.Dispatcher.RatePerSec < 0 {
		return dispatch.Config{}, errors.New("dispatcher.rate_per_sec must be >= 0")
	}
	sendTimeout, err := config.ParseDurationField("dispatcher.send_timeout", cfg.Dispatcher.SendTimeout)
	if err != nil {
		return dispatch.Config{}, err
	}
	return dispatch.Config{
		Schedule:    sched,
		RatePerSec:  cfg.Dispatcher.RatePerSec,
		SendTimeout: sendTimeout,
	}, nil
}

// validateConfig gates hot reloads: a config that fails here is rejected and
// the previous config stays committed.
func validateConfig(_ context.Context, cfg *config.Config) error {
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapDispatcherConfig(cfg); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required when telegram.enabled")
	}
	if cfg.WhatsApp.Enabled {
		if strings.TrimSpace(cfg.WhatsApp.AccountSID) == "" || strings.TrimSpace(cfg.WhatsApp.AuthToken) == "" {
			return errors.New("whatsapp.account_sid and whatsapp.auth_token are required when whatsapp.enabled")
		}
		if strings.TrimSpace(cfg.WhatsApp.FromNumber) == "" {
			return errors.New("whatsapp.from_number is required when whatsapp.enabled")
		}
	}
	if !cfg.Telegram.Enabled && !cfg.WhatsApp.Enabled {
		return errors.New("at least one channel must stay enabled")
	}
	return nil
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

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(validateConfig)

	for _, ad := range a.adapters {
		if err := ad.Start(a.sup.Context(), a.updates); err != nil {
			a.sup.Cancel()
			return fmt.Errorf("start %s adapter: %w", ad.Channel(), err)
		}
	}

	a.sup.Go0("intake.run", func(c context.Context) {
		a.intake.Run(c, a.updates)
	})
	a.sup.Go0("dispatch.run", func(c context.Context) {
		a.disp.Run(c)
	})

	// hot reload fan-out
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
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

// applyConfig applies the live-reloadable sections (logging) and warns about
// sections that only take effect after a restart.
func (a *App) applyConfig(prev, next *config.Config) {
	if next == nil {
		return
	}

	a.logs.Apply(logx.Config{
		Level:   next.Logging.Level,
		Console: next.Logging.Console,
		File: logx.FileConfig{
			Enabled: next.Logging.File.Enabled,
			Path:    next.Logging.File.Path,
		},
	})

	if prev != nil {
		var stale []string
		if !reflect.DeepEqual(prev.Storage, next.Storage) {
			stale = append(stale, "storage")
		}
		if !reflect.DeepEqual(prev.Telegram, next.Telegram) {
			stale = append(stale, "telegram")
		}
		if !reflect.DeepEqual(prev.WhatsApp, next.WhatsApp) {
			stale = append(stale, "whatsapp")
		}
		if !reflect.DeepEqual(prev.Dispatcher, next.Dispatcher) {
			stale = append(stale, "dispatcher")
		}
		if len(stale) > 0 {
			a.log.Warn("config changed; restart required for changes to take effect",
				logx.String("sections", strings.Join(stale, ",")))
		}
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}

	// Stop intake first so no new reminders arrive while adapters wind down.
	a.sup.Cancel()

	for _, ad := range a.adapters {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := ad.Stop(stopCtx); err != nil {
			a.log.Warn("adapter stop", logx.String("channel", ad.Channel()), logx.Err(err))
		}
		cancel()
	}

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := a.sup.Wait(waitCtx)
	cancel()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("shutdown", logx.Err(err))
	}

	if cerr := a.store.Close(); cerr != nil {
		a.log.Warn("store close", logx.Err(cerr))
	}
	_ = a.logs.Close()
	a.log.Info("app stopped")
	return err
}
