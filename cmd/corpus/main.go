// Copyright 2025 Kadir Pekel
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

// Command corpus is the CLI for the corpus service.
//
// Usage:
//
//	corpus serve --config config.yaml
//	corpus serve --port 9090
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/kadirpekel/corpus/pkg/config"
	"github.com/kadirpekel/corpus/pkg/embedders"
	"github.com/kadirpekel/corpus/pkg/llms"
	"github.com/kadirpekel/corpus/pkg/logger"
	"github.com/kadirpekel/corpus/pkg/rag"
	"github.com/kadirpekel/corpus/pkg/server"
	"github.com/kadirpekel/corpus/pkg/session"
	"github.com/kadirpekel/corpus/pkg/vector"
)

const shutdownTimeout = 10 * time.Second

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP server."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("corpus version %s\n", version)
	return nil
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Port int `help:"Port to listen on (overrides config)." default:"0"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	embedder, err := embedders.NewEmbedder(&cfg.Embedder)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer embedder.Close()

	provider, err := vector.NewProvider(&cfg.Vector, embedder.Dimension())
	if err != nil {
		return fmt.Errorf("failed to create vector provider: %w", err)
	}
	defer provider.Close()

	splitter, err := rag.NewSplitter(cfg.Splitter)
	if err != nil {
		return fmt.Errorf("failed to create splitter: %w", err)
	}

	indexer := rag.NewIndexer(embedder, provider, cfg.Vector.Collection)
	store := rag.NewStore(splitter, indexer)

	llm, err := llms.NewOllamaProviderFromConfig(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	defer llm.Close()

	// Best effort: the model list is refreshed on every GET /api/models,
	// so an unreachable runtime at startup is not fatal.
	models, err := llm.ListModels(context.Background())
	if err != nil {
		slog.Warn("Failed to list models at startup", "error", err)
	}
	settings := session.NewSettings(models)

	pipeline := rag.NewPipeline(indexer, llm, settings, cfg.Chat)

	srv := server.New(cfg.Server, store, pipeline, settings, llm)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			slog.Error("Shutdown error", "error", err)
		}
	}()

	fmt.Printf("\ncorpus server ready!\n")
	fmt.Printf("   API:     http://%s:%d/api\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("   Health:  http://%s:%d/health\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		slog.Info("No config file given, using defaults")
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.Info("Loaded configuration", "path", path)
	return cfg, nil
}

func initLogger(cli *CLI) (func(), error) {
	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if cli.LogFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, cli.LogFormat)
	return cleanup, nil
}

func main() {
	_ = godotenv.Load()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("corpus"),
		kong.Description("corpus - category-scoped retrieval-augmented chat over local models"),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
