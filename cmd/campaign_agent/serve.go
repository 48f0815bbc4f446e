package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/campaign-briefing/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing the briefing endpoints:

  GET  /issues/{issue}/articles         ArticleSearchResult JSON
  GET  /issues/{issue}/articles/stream  the same, as Server-Sent Events with progress
  POST /deep-dive/{category}            ExpandedMetrics JSON in, DeepDiveResult JSON out
  GET  /health
  GET  /metrics                         Prometheus exposition`,
	RunE: runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	logger := newLogger(cfg, os.Stderr)

	p, client, err := newPipeline(cmd.Context(), cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	srv, err := server.New(server.Config{
		Port:           cfg.Server.Port,
		ArticlesTTL:    cfg.Server.ArticlesTTL,
		DeepDiveTTL:    cfg.Server.DeepDiveTTL,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimit:      cfg.RateLimitConfig(),
		Logger:         logger,
	}, p)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(cmd.Context())
}
