package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/strata/internal/apiclient"
	"github.com/kingrea/strata/internal/capability"
	"github.com/kingrea/strata/internal/config"
	"github.com/kingrea/strata/internal/domain"
	"github.com/kingrea/strata/internal/export"
	"github.com/kingrea/strata/internal/logging"
	"github.com/kingrea/strata/internal/query"
	"github.com/kingrea/strata/internal/settings"
	"github.com/kingrea/strata/internal/toast"
)

// runtime is the wiring shared by the console and the headless commands.
type runtime struct {
	cfg      *config.Config
	log      *logging.Logger
	logger   logrus.FieldLogger
	client   *apiclient.Client
	cache    *query.Cache
	journal  *toast.Journal
	toasts   toast.Sink
	exporter *export.Exporter
	me       domain.CurrentUser
	caps     capability.Capabilities
}

// openRuntime loads config, opens the logs and authenticates. extra receives
// every toast in addition to the activity journal.
func openRuntime(ctx context.Context, opts *rootOptions, extra toast.Sink) (*runtime, error) {
	dir := opts.dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		dir = cwd
	}
	if err := config.InitStrataDir(dir); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", config.StrataDir, err)
	}
	cfg, err := config.NewConfig(dir)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogsDir(), cfg.LogLevel())
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log, cache: query.New()}
	rt.logger = log.WithField("project", dir)

	journal, err := toast.NewJournal(cfg.ActivityLogPath())
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.journal = journal
	if extra != nil {
		rt.toasts = toast.Fanout(journal, extra)
	} else {
		rt.toasts = journal
	}

	rt.client, err = apiclient.New(cfg.BaseURL(),
		apiclient.WithLogger(rt.logger),
		apiclient.WithTimeout(cfg.Project.API.Timeout),
		apiclient.WithOrigin(cfg.Origin()),
		apiclient.WithSessionCookie(cfg.Project.Session.CookieName, cfg.Project.Session.CookieValue),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.me, rt.caps, err = capability.Load(ctx, rt.client)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("%w (is STRATA_SESSION set to a signed-in session?)", err)
	}
	rt.logger.WithFields(logrus.Fields{
		"user": rt.me.Email,
		"role": rt.me.Role,
	}).Info("session loaded")

	rt.exporter = &export.Exporter{
		API:     rt.client,
		Dir:     cfg.ExportDir(),
		Stagger: cfg.Project.Export.Stagger,
		Toasts:  rt.toasts,
		Logger:  rt.logger,
	}
	return rt, nil
}

func (rt *runtime) deps(confirm settings.Confirmer) settings.Deps {
	return settings.Deps{
		API:     rt.client,
		Cache:   rt.cache,
		Toasts:  rt.toasts,
		Confirm: confirm,
		Caps:    rt.caps,
		Me:      rt.me,
		Logger:  rt.logger,
	}
}

func (rt *runtime) Close() {
	if rt.log != nil {
		_ = rt.log.Close()
	}
}
