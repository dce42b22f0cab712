package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Skufu/labinterpreter/internal/generator"
	"github.com/Skufu/labinterpreter/internal/interpret"
	"github.com/Skufu/labinterpreter/internal/knowledge"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "labinterpreter",
		Short:        "Clinical laboratory report interpreter",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(interpretCmd())
	root.AddCommand(rangesCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := newLogger(cfg, os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, logger)
		},
	}
}

func interpretCmd() *cobra.Command {
	var (
		file   string
		age    int
		gender string
	)
	cmd := &cobra.Command{
		Use:   "interpret",
		Short: "Interpret one laboratory report and print the JSON result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			content, err := readInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}

			req := interpret.Request{HTMLContent: &content}
			if cmd.Flags().Changed("age") || cmd.Flags().Changed("gender") {
				req.PatientInfo = map[string]any{}
				if cmd.Flags().Changed("age") {
					req.PatientInfo["age"] = age
				}
				if gender != "" {
					req.PatientInfo["gender"] = gender
				}
			}

			svc, err := buildService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			result, err := svc.Interpret(cmd.Context(), req)
			if err != nil {
				if interpret.IsBadRequest(err) {
					return fmt.Errorf("invalid input: %w", err)
				}
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "report file (HTML or text), - for stdin")
	cmd.Flags().IntVar(&age, "age", 0, "patient age in years")
	cmd.Flags().StringVar(&gender, "gender", "", "patient gender")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func rangesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ranges",
		Short: "Print the reference range table",
		RunE: func(cmd *cobra.Command, args []string) error {
			kb, err := knowledge.Load()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), kb.Ranges())
		},
	}
}

func runServer(ctx context.Context, cfg *Config, logger zerolog.Logger) error {
	gin.SetMode(cfg.GinMode)

	svc, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.GeminiAPIKey == "" && cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("no AI backend configured, using rule-based interpretation")
	}

	router := setupRouter(svc, cfg, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.AITimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("model", svc.ModelUsed()).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return waitForShutdown(gctx, server, logger)
	})
	return g.Wait()
}

func waitForShutdown(ctx context.Context, server *http.Server, logger zerolog.Logger) error {
	<-ctx.Done()

	logger.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func buildService(ctx context.Context, cfg *Config, logger zerolog.Logger) (*interpret.Service, error) {
	kb, err := knowledge.Load()
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return interpret.New(kb, interpret.Options{
		Generator: gen,
		ModelUsed: cfg.ModelLabel(),
		AITimeout: cfg.AITimeout,
	}, logger), nil
}

// newGenerator returns nil when AI synthesis is disabled. Gemini wins when
// both keys are present.
func newGenerator(ctx context.Context, cfg *Config) (generator.TextGenerator, error) {
	if !cfg.AIEnabled {
		return nil, nil
	}
	if cfg.GeminiAPIKey != "" {
		return generator.NewGemini(ctx, generator.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	}
	return generator.NewOpenAI(generator.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
}

func newLogger(cfg *Config, w io.Writer) zerolog.Logger {
	if strings.EqualFold(cfg.LogFormat, "console") {
		w = zerolog.ConsoleWriter{Out: w}
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
