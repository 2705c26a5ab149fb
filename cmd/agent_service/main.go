package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	gRPC "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/contractor-agent/golang_services/internal/agent_service/adapters/notifier"
	"github.com/contractor-agent/golang_services/internal/agent_service/bootstrap"
	httptransport "github.com/contractor-agent/golang_services/internal/agent_service/transport/http"
	"github.com/contractor-agent/golang_services/internal/platform/config"
	"github.com/contractor-agent/golang_services/internal/platform/logger"
)

const (
	serviceName     = "agent-service"
	shutdownTimeout = 15 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	appLogger := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout).With("service", serviceName)

	if err := cfg.Validate(); err != nil {
		appLogger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("Agent service starting...",
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
		"metrics_port", cfg.MetricsPort,
		"store_driver", cfg.StoreDriver,
		"auth_enabled", cfg.JWTSecret != "",
	)

	store, err := bootstrap.OpenStore(mainCtx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open agent store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	changes, closeNotifier, err := bootstrap.NewNotifier(cfg, appLogger, serviceName)
	if err != nil {
		appLogger.Error("Failed to set up change notifier", "error", err)
		os.Exit(1)
	}
	defer closeNotifier()

	agents := notifier.NewNotifyingRepository(store.Agents, changes, appLogger)
	orchestrator, err := bootstrap.NewOrchestrator(cfg, agents, appLogger)
	if err != nil {
		appLogger.Error("Failed to build orchestrator", "error", err)
		os.Exit(1)
	}
	payments := bootstrap.NewPaymentService(cfg, orchestrator, store.Profiles, appLogger)

	validate := validator.New()
	handlers := httptransport.Handlers{
		Agents:   httptransport.NewAgentHandler(orchestrator, agents, appLogger, validate),
		Payments: httptransport.NewPaymentHandler(payments, appLogger, validate),
		Stream:   httptransport.NewStreamHandler(changes, appLogger, originPatterns(cfg.PublicBaseURL)...),
	}
	if store.Profiles != nil {
		handlers.Profile = httptransport.NewProfileHandler(store.Profiles, agents, appLogger)
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	// --- gRPC health + reflection ---
	grpcMetrics := grpcprom.NewServerMetrics(
		grpcprom.WithServerHandlingTimeHistogram(),
	)
	if err := prometheus.DefaultRegisterer.Register(grpcMetrics); err != nil {
		appLogger.Warn("Failed to register gRPC Prometheus metrics", "error", err)
	}
	grpcServer := gRPC.NewServer(
		gRPC.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		gRPC.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	grpcListenAddress := fmt.Sprintf(":%d", cfg.GRPCPort)
	grpcListener, err := net.Listen("tcp", grpcListenAddress)
	if err != nil {
		appLogger.Error("Failed to listen for gRPC", "address", grpcListenAddress, "error", err)
		os.Exit(1)
	}

	g.Go(func() error {
		appLogger.Info("gRPC health server starting", "address", grpcListenAddress)
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, gRPC.ErrServerStopped) {
			appLogger.Error("gRPC server failed to serve", "error", err)
			return err
		}
		appLogger.Info("gRPC server shut down gracefully.")
		return nil
	})

	// --- Public HTTP API ---
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      httptransport.NewRouter(handlers, cfg.JWTSecret, appLogger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // provisioning calls and change streams outlive any fixed write deadline
		IdleTimeout:  120 * time.Second,
	}

	g.Go(func() error {
		appLogger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("HTTP server ListenAndServe error", "error", err)
			return err
		}
		appLogger.Info("HTTP server shut down gracefully.")
		return nil
	})

	// --- Metrics ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		appLogger.Info("Metrics HTTP server starting", "address", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Metrics HTTP server ListenAndServe error", "error", err)
			return err
		}
		appLogger.Info("Metrics HTTP server shut down gracefully.")
		return nil
	})

	// --- Graceful shutdown ---
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)

	g.Go(func() error {
		select {
		case sig := <-stopSignal:
			appLogger.Info("Received termination signal", "signal", sig.String())
			mainCancel()
			return nil
		case <-groupCtx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-groupCtx.Done()
		appLogger.Info("Initiating graceful shutdown of servers...")
		healthServer.Shutdown()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		var shutdownErrors error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("HTTP server graceful shutdown failed", "error", err)
			shutdownErrors = errors.Join(shutdownErrors, fmt.Errorf("http shutdown: %w", err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics HTTP server graceful shutdown failed", "error", err)
			shutdownErrors = errors.Join(shutdownErrors, fmt.Errorf("metrics http shutdown: %w", err))
		}
		grpcServer.GracefulStop()
		return shutdownErrors
	})

	appLogger.Info("Agent service is ready and running.")
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, gRPC.ErrServerStopped) {
			appLogger.Error("Service group encountered an error during run/shutdown", "error", err)
		}
	}

	appLogger.Info("Agent service shut down successfully.")
}

// originPatterns allows the frontend at publicBaseURL to open change streams.
func originPatterns(publicBaseURL string) []string {
	u, err := url.Parse(publicBaseURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
