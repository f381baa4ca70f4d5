package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/app"
	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/server"
)

var (
	servePort       int
	serveAPIKey     string
	serveDatabase   string
	serveUseBrowser bool
	serveRenderPDF  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that runs optimizations on request and streams stage progress over SSE.

Run history endpoints need DATABASE_URL (or --db-url); without it only runs served by this process can be looked up.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	serveCmd.Flags().StringVar(&serveDatabase, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	serveCmd.Flags().BoolVar(&serveUseBrowser, "use-browser", false, "Use headless browser for SPA job sites (requires Chrome)")
	serveCmd.Flags().BoolVar(&serveRenderPDF, "pdf", false, "Allow PDF rendering with headless Chrome")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if servePort < 1 || servePort > 65535 {
		return fmt.Errorf("--port must be between 1 and 65535")
	}

	cfg, err := resolveConfig(config.Config{
		APIKey:      serveAPIKey,
		DatabaseURL: serveDatabase,
		UseBrowser:  serveUseBrowser,
		RenderPDF:   serveRenderPDF,
	}, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	components, err := app.Build(cmd.Context(), &cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srvCfg := server.Config{
		Port:   servePort,
		Runner: components.Runner,
		Logger: logger,
		OnStop: components.Close,
	}
	if components.DB != nil {
		srvCfg.History = components.DB
	} else {
		logger.Warn("no database configured, run history endpoints are disabled")
	}

	return server.New(srvCfg).Start()
}
