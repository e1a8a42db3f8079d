package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nhle/kanban/internal/auth"
	"github.com/nhle/kanban/internal/cache"
	"github.com/nhle/kanban/internal/credential"
	"github.com/nhle/kanban/internal/model"
	"github.com/nhle/kanban/internal/mutation"
	"github.com/nhle/kanban/internal/notify"
	"github.com/nhle/kanban/internal/selection"
	"github.com/nhle/kanban/internal/store"
	appsync "github.com/nhle/kanban/internal/sync"
)

// services is the wired service graph shared by the TUI and the
// headless commands.
type services struct {
	cfg       *model.AppConfig
	gateway   *store.Gateway
	session   *auth.Session
	contacts  *cache.ContactCache
	tasks     *cache.TaskCache
	engine    *mutation.Engine
	coord     *selection.Coordinator
	refresher *appsync.Refresher
}

func loadConfig(flags globalFlags) (*model.AppConfig, error) {
	path := flags.configPath
	if path == "" {
		path = model.DefaultConfigPath()
	}
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

// setupLogging applies the configured level. When toFile is set, logs go
// to the configured file so they do not corrupt the terminal UI.
func setupLogging(cfg *model.AppConfig, toFile bool) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if !toFile || cfg.Log.File == "" {
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return f, nil
}

// openStore opens the configured document store backend.
func openStore(ctx context.Context, cfg model.StoreConfig) (store.DocumentStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "redis":
		rs, err := store.OpenRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		ss, err := store.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return ss, nil
	}
}

// openVault returns the OS keyring, or an in-memory one when no backend
// is available.
func openVault() auth.Secrets {
	dir := filepath.Dir(model.DefaultConfigPath())
	v, err := credential.Open(filepath.Join(dir, "keyring"))
	if err != nil {
		log.WithError(err).Warn("keyring unavailable, session will not be remembered")
		return credential.NewMemoryVault()
	}
	return v
}

// wire builds the service graph over docs, reporting through n.
func wire(cfg *model.AppConfig, docs store.DocumentStore, n notify.Notifier, secrets auth.Secrets) *services {
	gw := store.NewGateway(docs, cfg.Store.Timeout())
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	session := auth.NewSession(gw, secrets, rnd)
	contacts := cache.NewContactCache(gw, session, n, cfg.Contacts.Locale)
	tasks := cache.NewTaskCache(gw, contacts, n)
	engine := mutation.New(tasks, gw, n, mutation.WithSuccessNotifications(cfg.Board.NotifySuccess))

	coord := selection.New(selection.RealScheduler{}, selection.Config{
		Enter:      time.Duration(cfg.Selection.EnterMs) * time.Millisecond,
		Exit:       time.Duration(cfg.Selection.ExitMs) * time.Millisecond,
		Breakpoint: cfg.Selection.Breakpoint,
	}, n)

	refresher := appsync.New(time.Duration(cfg.Sync.IntervalSec) * time.Second)
	refresher.Register("contacts", func(ctx context.Context) (int, error) {
		cs, err := contacts.FetchAll(ctx)
		return len(cs), err
	})
	refresher.Register("tasks", func(ctx context.Context) (int, error) {
		ts, err := tasks.FetchAll(ctx)
		return len(ts), err
	})

	return &services{
		cfg:       cfg,
		gateway:   gw,
		session:   session,
		contacts:  contacts,
		tasks:     tasks,
		engine:    engine,
		coord:     coord,
		refresher: refresher,
	}
}
