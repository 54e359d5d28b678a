/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command crpt-demo submits example documents through the rate-limited CRPT client.
// By default, documents are sent to a local stub of the document creation endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	golog "log"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acronis/go-crptclient/crpt"
	"github.com/acronis/go-crptclient/crpt/crpttest"
	"github.com/acronis/go-crptclient/dispatch"
	"github.com/acronis/go-crptclient/httpserver"
	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/profserver"
	"github.com/acronis/go-crptclient/service"
)

const metricsNamespace = "crpt"

func main() {
	cfgPath := flag.String("config", "config.yml", "path to the YAML configuration file (optional)")
	flag.Parse()
	if err := runApp(*cfgPath); err != nil {
		golog.Fatal(err)
	}
}

func runApp(cfgPath string) error {
	cfg, err := loadAppConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	var serviceUnits []service.Unit

	if cfg.Demo.StubServer.Enabled {
		stubServer := makeStubServer(cfg, logger)
		serviceUnits = append(serviceUnits, stubServer)
		cfg.Crpt.BaseURL = "http://" + cfg.Demo.StubServer.Address
	}

	api, err := crpt.NewAPI(cfg.Crpt, crpt.APIOpts{
		Logger:           logger,
		MetricsNamespace: metricsNamespace,
	})
	if err != nil {
		return fmt.Errorf("create CRPT API: %w", err)
	}
	logger.Info("CRPT API is created",
		log.String("base_url", cfg.Crpt.BaseURL),
		log.String("rate", api.Dispatcher.Rate().String()),
		log.Duration("poll_interval", api.Dispatcher.PollInterval()),
	)
	serviceUnits = append(serviceUnits, api.Unit())

	serviceUnits = append(serviceUnits, httpserver.New(cfg.MetricsServer, logger, httpserver.Opts{
		RouterOpts: httpserver.RouterOpts{HealthCheck: makeHealthCheck(api)},
	}))

	if cfg.ProfServer.Enabled {
		serviceUnits = append(serviceUnits, profserver.New(cfg.ProfServer, logger))
	}

	feederLogger := logger.With(log.String("worker", "feeder"))
	serviceUnits = append(serviceUnits, service.NewWorkerUnitWithOpts(
		service.NewPeriodicWorkerWithOpts(
			&feeder{api: api, logger: feederLogger, total: cfg.Demo.Documents},
			time.Duration(cfg.Demo.Interval), feederLogger,
			service.PeriodicWorkerOpts{InitialDelay: time.Duration(cfg.Demo.Interval)},
		),
		service.WorkerUnitOpts{GracefulStopTimeout: time.Second},
	))

	ctx := context.Background()
	if cfg.Demo.RunFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Demo.RunFor))
		defer cancel()
	}
	err = service.New(logger, service.NewCompositeUnit(serviceUnits...)).StartContext(ctx)

	stats := api.Stats()
	logger.Info("demo finished",
		log.Int64("admitted", stats.Admitted),
		log.Int("pending", stats.Pending),
		log.String("state", stats.State.String()),
	)
	return err
}

func makeStubServer(cfg *AppConfig, logger log.FieldLogger) *httpserver.HTTPServer {
	stubCfg := httpserver.NewDefaultConfig()
	stubCfg.Address = cfg.Demo.StubServer.Address
	stub := crpttest.NewServer(cfg.Crpt.Token)
	return httpserver.New(stubCfg, logger.With(log.String("server", "stub")), httpserver.Opts{
		RouterOpts: httpserver.RouterOpts{
			Routes: func(router chi.Router) {
				router.Post(crpttest.CreateDocumentPath, stub.CreateDocumentHandler())
			},
			LogRequests: true,
		},
		MetricsNamespace: metricsNamespace + "_stub",
	})
}

func makeHealthCheck(api *crpt.API) httpserver.HealthCheck {
	return func(ctx context.Context) (httpserver.HealthCheckResult, error) {
		stats := api.Stats()
		details := map[string]interface{}{
			"state":     stats.State.String(),
			"pending":   stats.Pending,
			"in_window": stats.InWindow,
			"admitted":  stats.Admitted,
		}
		if stats.Err != nil {
			details["error"] = stats.Err.Error()
		}
		return httpserver.HealthCheckResult{
			"dispatcher": {Healthy: stats.State == dispatch.StateRunning && stats.Err == nil, Details: details},
		}, ctx.Err()
	}
}
