// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	apihttp "tailr/api/http"
	"tailr/internal/revision"
	"tailr/internal/store"
	"tailr/pkg/config"
	"tailr/pkg/health"
	"tailr/pkg/log"
	"tailr/pkg/metrics"
	"tailr/pkg/reliability"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (defaults used if empty)")
	listenAddr := flag.String("addr", ":5000", "HTTP listen address, used only if no config file is loaded")
	flag.Parse()

	cfg, err := config.LoadConfigOrDefault(*configPath, *listenAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tailrd: load config: %v\n", err)
		os.Exit(1)
	}

	if err := log.InitFromConfig(&cfg.Server.Log); err != nil {
		fmt.Fprintf(os.Stderr, "tailrd: init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	defer zapLogger.Sync()

	db, err := store.Open(cfg.Server.Database.DSN, store.PoolConfig{
		MaxOpenConns:    cfg.Server.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Server.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Server.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal("failed to open database", log.Err(err))
	}

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal("failed to migrate schema", log.Err(err))
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	limiter := reliability.NewRequestLimiter(cfg.Server.Reliability.MaxInFlightRequests, float64(cfg.Server.Reliability.MaxInFlightRequests))

	engine := revision.NewEngine()

	apiServer := apihttp.NewServer(apihttp.Config{
		ListenAddress: cfg.Server.ListenAddress,
		DB:            db,
		Engine:        engine,
		Metrics:       m,
		Limiter:       limiter,
	})

	var metricsServer *metrics.MetricsServer
	if cfg.Server.Monitoring.EnablePrometheus {
		metricsServer = metrics.ServeMetrics(cfg.Server.Monitoring.PrometheusListenAddress, registry, zapLogger)
	}

	healthServer := health.NewHealthServer(zapLogger)
	healthServer.RegisterChecker(health.NewDBChecker("mysql", db.DB))
	go func() {
		if err := health.StartHealthServer(":5001", healthServer, zapLogger); err != nil {
			log.Error("health server stopped", log.Err(err))
		}
	}()

	shutdown := reliability.NewGracefulShutdown(cfg.Server.Reliability.ShutdownTimeout)

	shutdown.RegisterHook(reliability.PhaseStopAccepting, func(ctx context.Context) error {
		return apiServer.Stop(ctx)
	})
	if metricsServer != nil {
		shutdown.RegisterHook(reliability.PhaseCloseResources, func(ctx context.Context) error {
			return metricsServer.Shutdown(ctx)
		})
	}
	shutdown.RegisterHook(reliability.PhaseCloseResources, func(ctx context.Context) error {
		return db.Close()
	})
	shutdown.RegisterHook(reliability.PhaseCloseResources, func(ctx context.Context) error {
		return log.Sync()
	})

	reliability.SafeGo("http-api", func() {
		if err := apiServer.Start(); err != nil {
			log.Error("HTTP API server stopped", log.Err(err))
		}
	})

	log.Info("tailrd started", log.String("address", cfg.Server.ListenAddress))
	shutdown.Wait()
	log.Info("tailrd stopped")
}
