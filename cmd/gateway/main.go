// Command gateway boots the tool-call gateway: the tool router, the
// context store, the AMQP publisher, the callback rendezvous, the Policy
// client, and the ambient HTTP policy pipeline that fronts them. Bootstrap
// shape follows the teacher's mcpsvc/main.go (build the policy slice, call
// si.BuildHandler, start an *http.Server), generalized from the teacher's
// API-version routing to this gateway's single fixed route table.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jk-nd/npl-gateway/internal/api"
	"github.com/jk-nd/npl-gateway/internal/config"
	"github.com/jk-nd/npl-gateway/internal/contextstore"
	"github.com/jk-nd/npl-gateway/internal/mediator"
	"github.com/jk-nd/npl-gateway/internal/policyclient"
	"github.com/jk-nd/npl-gateway/internal/publisher"
	"github.com/jk-nd/npl-gateway/internal/rendezvous"
	"github.com/jk-nd/npl-gateway/internal/router"
	si "github.com/jk-nd/npl-gateway/internal/serviceinfra"
	"github.com/jk-nd/npl-gateway/internal/serviceinfra/policies"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	cfg := config.Get()

	services, err := router.LoadServicesConfig(cfg.ServicesConfigPath)
	if err != nil {
		logger.Error("failed to load services config", slog.Any("error", err))
		os.Exit(1)
	}

	policyClient := policyclient.New(cfg.PolicyServiceURL, 5*time.Second)

	r := router.New(services, policyClient)

	contexts := contextstore.NewStore(cfg.ContextTTL())
	reaperDone := make(chan struct{})
	go contexts.RunReaper(reaperDone, time.Minute)

	amqpURL := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.RabbitMQUser, cfg.RabbitMQPass, cfg.RabbitMQHost, cfg.RabbitMQPort)
	pub, err := publisher.New(amqpURL, cfg.ExecutionQueue, logger)
	if err != nil {
		logger.Error("failed to start execution publisher", slog.Any("error", err))
		os.Exit(1)
	}
	defer pub.Close()

	rdv := rendezvous.New(logger)

	callbackURL := cfg.CallbackBaseURL + "/callback"
	med := mediator.New(r, contexts, pub, rdv, policyClient, callbackURL, cfg.ExecutionTimeout(), logger)

	server := api.NewServer(med, contexts, cfg.ExecutorAuthToken)

	shutdownMgr := policies.NewShutdownMgr(policies.ShutdownConfig{
		Logger:           logger,
		HealthProbeDelay: 2 * time.Second,
		DrainTimeout:     30 * time.Second,
	})
	defer close(reaperDone)

	chain := []si.Policy{
		policies.NewGracefulShutdownPolicy(shutdownMgr),
		policies.NewRequestLogPolicy(logger),
		policies.NewThrottlingPolicy(100),
		policies.NewMetricsPolicy(),
		policies.NewTracingPolicy(),
	}

	routes := append(server.Routes(),
		si.Route{Method: http.MethodGet, Pattern: "/healthz", Policies: []si.Policy{shutdownMgr.HealthProbe}},
		si.Route{Method: http.MethodGet, Pattern: "/metrics", Policies: []si.Policy{metricsPolicy}},
	)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: si.BuildHandler(chain, routes),
	}

	go func() {
		<-shutdownMgr.CtxDrained.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	logger.Info("gateway listening", slog.String("port", cfg.Port))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// metricsPolicy adapts promhttp's plain http.Handler into the si.Policy
// shape GET /metrics needs as a route's terminal policy.
func metricsPolicy(ctx context.Context, rr *si.ReqRes) error {
	policies.Handler().ServeHTTP(rr.RW, rr.R)
	return nil
}
