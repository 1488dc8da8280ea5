package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/handlers"
	"github.com/akolanti/DocTalk/internal/mcpServer"
	"github.com/akolanti/DocTalk/internal/middleware"
	"github.com/akolanti/DocTalk/internal/rag"
	"github.com/akolanti/DocTalk/internal/server"
	"github.com/akolanti/DocTalk/internal/telemetry"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/spf13/cobra"
)

const release = "doctalk@1.0.0"

// setup loads config, installs logging and telemetry and wires the service.
// The returned cleanup cancels remote clients and flushes telemetry.
func setup() (*config.Config, rag.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger_i.Init(cfg.LogLevel, cfg.IsProd())

	flushTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Env,
		Release:     release,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	cleanup := func() {
		closeExternalServices()
		flushTelemetry()
	}

	service, err := buildService(serviceContext, cfg)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return cfg, service, cleanup, nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	cmd.Flags().String("listen-addr", "", "server listen address, overrides LISTEN_ADDR")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, service, cleanup, err := setup()
	if err != nil {
		return err
	}
	logger := logger_i.NewLogger("main")

	listenAddr, _ := cmd.Flags().GetString("listen-addr")
	if listenAddr == "" {
		listenAddr = cfg.ListenAddr
	}

	sweeperContext, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	m := middleware.New(middleware.Options{
		AuthToken:      cfg.AuthToken,
		RatePerSecond:  cfg.RateLimitPerSecond,
		RateBurst:      cfg.RateLimitBurst,
		AllowedOrigins: cfg.CorsOrigins,
	})
	m.StartLimiterSweeper(sweeperContext, config.RateLimiterSweepInterval, config.RateLimiterIdleTTL)

	router := server.NewRouter(server.Routes{
		Handler:    handlers.NewHandler(service),
		Middleware: m,
		MCP:        mcpServer.NewServer(service).Handler(),
	})
	srv := server.CreateServer(listenAddr, router)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan error, 1)
	go func() {
		stopped <- srv.ShutDownHandler(gracefulShutdown, func() {
			stopSweeper()
			cleanup()
		})
	}()

	if err := srv.Listen(); err != nil {
		cleanup()
		return err
	}
	err = <-stopped
	logger.Info("Server stopped")
	return err
}

func ingestCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Index a document and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			_, service, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := service.IngestDocument(cmd.Context(), rag.IngestRequest{
				DocumentId: id,
				Filename:   filepath.Base(args[0]),
				Content:    content,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.Id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "reuse an existing document id, replacing its index")
	return cmd
}

func askCmd() *cobra.Command {
	var emotion string
	cmd := &cobra.Command{
		Use:   "ask <id> <question>",
		Short: "Answer a question from an indexed document",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, service, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := service.Answer(cmd.Context(), commonModels.QueryContext{
				DocumentId:  args[0],
				Question:    strings.Join(args[1:], " "),
				EmotionHint: emotion,
				TextOnly:    true,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&emotion, "emotion", "", "how the asker feels, adjusts the tone")
	return cmd
}

func docsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "List indexed document ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, service, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			ids, err := service.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a document's index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, service, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := service.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}
