// Package app wires configuration, storage, transports and pollers into the
// running daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"reminderbot/internal/config"
	"reminderbot/internal/dedup"
	"reminderbot/internal/dispatch"
	"reminderbot/internal/engine"
	"reminderbot/internal/runtime/supervisor"
	"reminderbot/internal/source"
	"reminderbot/internal/transport/email"
	"reminderbot/internal/transport/telegram"
	logx "reminderbot/pkg/logx"
)

type App struct {
	mgr    *config.ConfigManager
	logSvc *logx.Service
	log    logx.Logger

	src   source.Store
	store dedup.Store
	sup   *supervisor.Supervisor

	pollers []*engine.Poller

	// Reload targets: components that accept hot config changes.
	engines         []*engine.Engine
	chatResolver    *engine.ChatResolver
	emailDispatcher *dispatch.EmailDispatcher

	retention    time.Duration
	compactEvery time.Duration
}

// New loads and validates configuration. Missing credentials or an unusable
// store location fail here, before anything starts; past this point failures
// degrade per cycle instead.
func New(cfgPath string) (*App, error) {
	mgr := config.NewConfigManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	mgr.SetLogger(log)

	return &App{mgr: mgr, logSvc: logSvc, log: log}, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.mgr.Get()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	interval, err := config.ParseDurationOrDefault("poll.interval", cfg.Poll.Interval, 30*time.Second)
	if err != nil {
		return err
	}
	cycleTimeout, err := config.ParseDurationOrDefault("poll.cycle_timeout", cfg.Poll.CycleTimeout, 2*time.Minute)
	if err != nil {
		return err
	}
	srcTimeout, _ := config.ParseDurationOrDefault("source.timeout", cfg.Source.Timeout, 10*time.Second)
	busyTimeout, _ := config.ParseDurationField("dedup.busy_timeout", cfg.Dedup.BusyTimeout)
	a.retention, _ = config.ParseDurationField("dedup.retention", cfg.Dedup.Retention)
	a.compactEvery, _ = config.ParseDurationOrDefault("dedup.compact_every", cfg.Dedup.CompactEvery, 12*time.Hour)

	a.src, err = source.Open(ctx, source.Config{
		Driver:  cfg.Source.Driver,
		DSN:     cfg.Source.DSN,
		Timeout: srcTimeout,
		Loc:     loc,
	}, a.log)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	a.store, err = dedup.Open(ctx, dedup.Config{
		Driver:      cfg.Dedup.Driver,
		Path:        cfg.Dedup.Path,
		DSN:         cfg.Dedup.DSN,
		BusyTimeout: busyTimeout,
	}, a.log)
	if err != nil {
		return fmt.Errorf("open dedup store: %w", err)
	}

	classWins := engine.WindowsFromConfig(cfg.ClassWindows())
	assignWins := engine.WindowsFromConfig(cfg.AssignmentWindows())

	// Every completed cycle doubles as a liveness signal. A no-op when no
	// watchdog is armed.
	onCycle := func(engine.CycleStats) {
		_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	}

	if cfg.Email != nil && cfg.Email.Enabled {
		sendTimeout, _ := config.ParseDurationOrDefault("email.timeout", cfg.Email.Timeout, 30*time.Second)
		sender, err := email.New(email.Config{
			Host:               cfg.Email.Host,
			Port:               cfg.Email.Port,
			StartTLS:           cfg.Email.StartTLS,
			Username:           cfg.Email.Username,
			Password:           cfg.Email.Password,
			From:               cfg.Email.From,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		}, a.log)
		if err != nil {
			return fmt.Errorf("email transport: %w", err)
		}
		a.emailDispatcher = dispatch.NewEmail(sender, dispatch.Options{
			RatePerSec:      cfg.Email.RatePerSec,
			SendTimeout:     sendTimeout,
			SuppressDomains: cfg.Email.SuppressDomains,
		}, a.log)

		eng := engine.New(engine.ChannelEmail, a.src, a.store,
			engine.NewEmailResolver(a.src), a.emailDispatcher, a.log)
		eng.SetWindows(classWins, assignWins)
		a.engines = append(a.engines, eng)
		a.pollers = append(a.pollers, engine.NewPoller("email", eng, engine.PollerOptions{
			Interval:     interval,
			CycleTimeout: cycleTimeout,
			Location:     loc,
			OnCycle:      onCycle,
		}, a.log))
	}

	if cfg.Chat != nil && cfg.Chat.Enabled {
		chatTimeout, _ := config.ParseDurationOrDefault("chat.timeout", cfg.Chat.Timeout, 30*time.Second)
		sender, err := telegram.New(telegram.Config{Token: cfg.Chat.Token, Timeout: chatTimeout}, a.log)
		if err != nil {
			return fmt.Errorf("chat transport: %w", err)
		}
		chatDispatcher := dispatch.NewChat(sender, dispatch.Options{
			RatePerSec: cfg.Chat.RatePerSec,
		}, a.log)
		a.chatResolver = engine.NewChatResolver(cfg.Chat.Channels, a.log)

		eng := engine.New(engine.ChannelChat, a.src, a.store,
			a.chatResolver, chatDispatcher, a.log)
		eng.SetWindows(classWins, assignWins)
		a.engines = append(a.engines, eng)
		a.pollers = append(a.pollers, engine.NewPoller("chat", eng, engine.PollerOptions{
			Interval:     interval,
			CycleTimeout: cycleTimeout,
			Location:     loc,
			OnCycle:      onCycle,
		}, a.log))
	}

	if len(a.pollers) == 0 {
		return errors.New("no notification channel enabled")
	}

	for _, p := range a.pollers {
		if err := p.Start(ctx); err != nil {
			return err
		}
	}

	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))
	a.sup.Go("config-watch", a.mgr.Watch)
	a.sup.Go("config-apply", a.applyLoop)
	if a.retention > 0 {
		a.sup.Go("dedup-compact", a.compactLoop)
	}
	a.sup.Go("sd-watchdog", watchdogLoop)

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Debug("sd_notify ready failed", logx.Bool("sent", sent), logx.Err(err))
	}

	a.log.Info("reminder daemon started",
		logx.Duration("interval", interval),
		logx.Int("channels", len(a.pollers)),
		logx.String("timezone", loc.String()))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	var firstErr error
	for _, p := range a.pollers {
		if err := p.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.src != nil {
		_ = a.src.Close()
	}
	a.log.Info("reminder daemon stopped")
	_ = a.logSvc.Close()
	return firstErr
}

// applyLoop consumes config reloads and pushes the hot-applicable parts into
// running components.
func (a *App) applyLoop(ctx context.Context) error {
	ch := a.mgr.Subscribe(1)
	defer a.mgr.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg, ok := <-ch:
			if !ok {
				return nil
			}
			a.apply(cfg)
		}
	}
}

func (a *App) apply(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	classWins := engine.WindowsFromConfig(cfg.ClassWindows())
	assignWins := engine.WindowsFromConfig(cfg.AssignmentWindows())
	for _, eng := range a.engines {
		eng.SetWindows(classWins, assignWins)
	}

	if a.chatResolver != nil && cfg.Chat != nil {
		a.chatResolver.SetChannels(cfg.Chat.Channels)
	}
	if a.emailDispatcher != nil && cfg.Email != nil {
		a.emailDispatcher.SetSuppressedDomains(cfg.Email.SuppressDomains)
	}
	a.log.Info("applied config changes",
		logx.Int("chat_channels", chatChannelCount(cfg)))
}

func chatChannelCount(cfg *config.Config) int {
	if cfg.Chat == nil {
		return 0
	}
	return len(cfg.Chat.Channels)
}

// compactLoop prunes dedup keys past the retention period. The sent-key set
// otherwise grows without bound.
func (a *App) compactLoop(ctx context.Context) error {
	t := time.NewTicker(a.compactEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			cctx, cancel := context.WithTimeout(ctx, time.Minute)
			n, err := a.store.Compact(cctx, a.retention)
			cancel()
			if err != nil {
				a.log.Warn("dedup compaction failed", logx.Err(err))
				continue
			}
			if n > 0 {
				a.log.Info("dedup store compacted", logx.Int("pruned", n))
			}
		}
	}
}

// watchdogLoop pings the systemd watchdog when one is armed.
func watchdogLoop(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return nil
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
