package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"vacal/internal/caldate"
	"vacal/internal/config"
	"vacal/internal/event"
	"vacal/internal/layout"
	"vacal/internal/raster"
	"vacal/internal/render"
	"vacal/internal/slack"
	"vacal/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	date       string
	once       bool
	renderOnly bool
	debug      bool
}

func main() {
	flags := parseFlags()

	if flags.debug {
		log.SetLevel(log.DebugLevel)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		log.WithField("config_path", flags.configPath).WithError(err).Fatal("failed to load config")
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	log.WithFields(log.Fields{
		"listen":    conf.Listen,
		"timezone":  conf.Timezone,
		"mode":      conf.Mode,
		"data_path": conf.DataPath,
		"feeds":     len(conf.Feeds),
		"refresh":   conf.Refresh,
		"once":      flags.once,
	}).Info("vacal starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("signal received, shutting down")
		cancel()
	}()

	a := &app{
		conf:       conf,
		renderOnly: flags.renderOnly,
		dateFlag:   flags.date,
	}

	if flags.once {
		if err := a.runOnce(ctx); err != nil {
			log.WithError(err).Fatal("pipeline failed")
		}
		return
	}

	if err := a.serve(ctx); err != nil {
		log.WithError(err).Fatal("serve failed")
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig
	flag.StringVar(&cfg.configPath, "config", "vacal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.date, "date", "", "Reference date YYYY-MM-DD (defaults to today)")
	flag.BoolVar(&cfg.once, "once", false, "Run one render(+post) cycle and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render only; do not post to Slack")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	flag.Parse()
	return cfg
}

type app struct {
	conf       *config.Config
	renderOnly bool
	dateFlag   string
}

// runOnce spins an ephemeral server just long enough for the headless
// capture, runs the pipeline, and exits.
func (a *app) runOnce(ctx context.Context) error {
	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	server := web.NewServer("127.0.0.1:0", a.conf.OutputPNG)
	baseURL, done, err := server.Start(srvCtx)
	if err != nil {
		return err
	}

	err = a.runPipeline(ctx, server, baseURL)
	cancel()
	<-done
	return err
}

// serve runs the web server permanently and re-renders on the configured
// cron schedule.
func (a *app) serve(ctx context.Context) error {
	server := web.NewServer(a.conf.Listen, a.conf.OutputPNG)
	baseURL, done, err := server.Start(ctx)
	if err != nil {
		return err
	}

	if err := a.runPipeline(ctx, server, baseURL); err != nil {
		log.WithError(err).Error("initial render failed")
	}

	c := cron.New()
	_, err = c.AddFunc(a.conf.Refresh, func() {
		if err := a.runPipeline(ctx, server, baseURL); err != nil {
			log.WithError(err).Error("scheduled render failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", a.conf.Refresh, err)
	}
	c.Start()
	defer c.Stop()

	<-done
	log.Info("vacal exiting")
	return nil
}

// runPipeline is one full synchronous pass: build window, load and
// normalize events, assign lanes, emit SVG, capture PNG, post to Slack.
func (a *app) runPipeline(ctx context.Context, server *web.Server, baseURL string) error {
	conf := a.conf

	today, err := a.referenceDate()
	if err != nil {
		return err
	}
	weekStart := caldate.ParseWeekStart(conf.WeekStart)

	win, err := caldate.Build(caldate.Mode(conf.Mode), today, conf.WeeksBefore, conf.RollingWeeks, weekStart)
	if err != nil {
		return err
	}

	events, err := event.Load(conf.DataPath, win)
	if err != nil {
		return err
	}
	if len(conf.Feeds) > 0 {
		feeds := make([]event.Feed, 0, len(conf.Feeds))
		for _, f := range conf.Feeds {
			feeds = append(feeds, event.Feed{Name: f.Name, URL: f.URL})
		}
		fetcher := event.NewFetcher(conf.CacheDir)
		events = append(events, fetcher.FetchEvents(ctx, feeds, win)...)
	}

	rows := layout.Assign(win, events)

	opts := render.Options{
		Width:         conf.Width,
		Height:        conf.Height,
		Title:         windowTitle(caldate.Mode(conf.Mode), today, win),
		WeekdayLabels: conf.WeekdayLabels,
	}
	opts.Normalize(weekStart)

	svg := render.SVG(win, rows, today, opts)
	if err := os.WriteFile(conf.OutputSVG, svg, 0o644); err != nil {
		return fmt.Errorf("write SVG: %w", err)
	}

	server.SetArtifact(&web.Artifact{
		SVG:        svg,
		Window:     win,
		Rows:       rows,
		Width:      opts.Width,
		Height:     opts.Height,
		RenderedAt: time.Now().UTC(),
	})

	if err := raster.CapturePNG(ctx, raster.Options{
		URL:        baseURL + "/calendar",
		OutputPath: conf.OutputPNG,
		Width:      opts.Width,
		Height:     opts.Height,
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"events": len(events),
		"weeks":  len(win.Weeks),
		"svg":    conf.OutputSVG,
		"png":    conf.OutputPNG,
	}).Info("render completed")

	if a.renderOnly || conf.Slack.Token == "" || conf.Slack.ChannelID == "" {
		log.Debug("slack posting disabled, done")
		return nil
	}

	comment := conf.Slack.Comment
	if comment == "" {
		comment = fmt.Sprintf("Vacation calendar for %s", today.Format("2006-01-02"))
	}
	client := slack.NewClient(conf.Slack.Token, time.Duration(conf.Slack.TimeoutSeconds)*time.Second)
	return client.UploadFile(ctx, conf.Slack.ChannelID, conf.OutputPNG, conf.Slack.Title, comment)
}

// referenceDate resolves "today" from the -date flag or the configured
// timezone's current civil date, represented at UTC midnight like every
// other date in the pipeline.
func (a *app) referenceDate() (time.Time, error) {
	if a.dateFlag != "" {
		t, err := time.Parse("2006-01-02", a.dateFlag)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid -date %q: %w", a.dateFlag, err)
		}
		return t, nil
	}

	loc, err := time.LoadLocation(a.conf.Timezone)
	if err != nil {
		log.WithField("timezone", a.conf.Timezone).WithError(err).Warn("bad timezone, using local")
		loc = time.Local
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
}

// windowTitle formats the header text for the rendered calendar.
func windowTitle(mode caldate.Mode, today time.Time, win caldate.Window) string {
	if mode == caldate.ModeMonth {
		return today.Format("January 2006")
	}
	if win.Start.Year() != win.End.Year() {
		return win.Start.Format("Jan 2, 2006") + " to " + win.End.Format("Jan 2, 2006")
	}
	return win.Start.Format("Jan 2") + " to " + win.End.Format("Jan 2, 2006")
}
