package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/akeren/raine-waitlist/config"
	"github.com/akeren/raine-waitlist/domain/waitlist"
	"github.com/akeren/raine-waitlist/internal/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func runStats(logger *log.Logger, out io.Writer, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("stats takes at most one argument, got %d", len(args))
	}

	waitlistCfg := config.NewWaitlistConfig()
	appSlug := waitlistCfg.AppSlug
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		appSlug = strings.TrimSpace(args[0])
	}

	db, err := config.NewDatabase(logger, config.NewDBConfigFromEnv())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	service := waitlist.NewWaitlistServiceFactory(db, logger, waitlist.FactoryOptions{
		Service: waitlist.ServiceConfig{DefaultAppSlug: waitlistCfg.AppSlug},
	}).CreateService()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return renderStats(out, appSlug, service.Stats(ctx, appSlug))
}

func renderStats(out io.Writer, appSlug string, stats *waitlist.WaitlistStats) error {
	if stats == nil {
		stats = &waitlist.WaitlistStats{}
	}

	printer := message.NewPrinter(language.English)
	title := cases.Title(language.English).String(strings.ReplaceAll(appSlug, "-", " "))

	_, err := printer.Fprintf(out, "%s (%s): %d people on the waitlist, %d joined in the last 24 hours\n",
		title, appSlug, stats.TotalEntries, stats.RecentEntries)
	return err
}
