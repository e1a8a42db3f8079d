package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/nhle/kanban/internal/app"
	"github.com/nhle/kanban/internal/board"
	"github.com/nhle/kanban/internal/selection"
)

func runTUI(ctx context.Context, flags globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logFile, err := setupLogging(cfg, true)
	if err != nil {
		return err
	}
	defer logFile.Close()

	docs, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer docs.Close()

	notifier := app.NewNotifier()
	svc := wire(cfg, docs, notifier, openVault())
	menu := selection.NewMobileMenu(svc.coord)
	defer menu.Close()
	defer svc.coord.Dispose()

	root := app.New(app.Deps{
		Config:    cfg,
		Notifier:  notifier,
		Tasks:     svc.tasks,
		Contacts:  svc.contacts,
		Engine:    svc.engine,
		Drag:      board.NewDrag(svc.engine),
		Coord:     svc.coord,
		Menu:      menu,
		Session:   svc.session,
		Refresher: svc.refresher,
		Directory: svc.gateway,
	})
	defer root.Close()

	log.WithFields(log.Fields{
		"driver":  cfg.Store.Driver,
		"version": Version,
	}).Info("starting kanban")

	p := tea.NewProgram(root, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	svc.contacts.WaitCleanup()
	return nil
}
