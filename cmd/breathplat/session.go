package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breathplat/internal/analysis"
	"breathplat/internal/config"
	"breathplat/internal/dataset"
	"breathplat/internal/explain"
	"breathplat/internal/journal"
	"breathplat/internal/logging"
	"breathplat/internal/steps"
	"breathplat/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// session bundles what one wizard or headless run needs.
type session struct {
	id      string
	env     steps.Env
	runners []steps.Runner
	ctl     *workflow.Controller
	journal *journal.Journal
}

// newSession wires the store, service client, explainer, runners and
// controller. When the journal is enabled every controller event is recorded
// under a fresh session id.
func newSession(ctx context.Context, c *config.Config, mode string) (*session, error) {
	client := analysis.NewClient(c.Services)
	explainer, err := explain.New(ctx, c, client)
	if err != nil {
		return nil, fmt.Errorf("failed to create explainer: %w", err)
	}
	s := &session{
		id: uuid.NewString(),
		env: steps.Env{
			Files:     dataset.NewStore(),
			Services:  client,
			Explainer: explainer,
			Config:    c,
		},
	}
	s.runners = steps.Default(s.env)
	stepList := steps.StepsFor(s.runners)

	var opts []workflow.Option
	if c.Journal.Enabled {
		j, err := journal.Open(c.Journal.Path)
		if err != nil {
			return nil, err
		}
		if err := j.StartSession(s.id, mode, len(stepList), time.Now()); err != nil {
			_ = j.Close()
			return nil, err
		}
		s.journal = j
		opts = append(opts, workflow.WithObserver(j.Observer(s.id)))
	}

	s.ctl, err = workflow.NewController(stepList, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	logging.Get(logging.CategoryBoot).Info("session started",
		zap.String("session", s.id),
		zap.String("mode", mode),
		zap.String("explainer", explainer.Name()),
		zap.Bool("journal", s.journal != nil))
	return s, nil
}

// Close releases the journal.
func (s *session) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			logging.Get(logging.CategoryJournal).Warn("failed to close journal", zap.Error(err))
		}
	}
}

// commandContext returns a context cancelled on SIGINT/SIGTERM and after the
// --timeout, if one is set.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// configuredServices lists the services that have an endpoint, in wizard
// order.
func configuredServices(c *config.Config) []string {
	var names []string
	for _, name := range config.ServiceNames {
		if _, ok := c.Services[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
