// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command lectern answers questions over course transcripts.
//
// Usage:
//
//	lectern serve --config config.yaml
//	lectern ingest --folder docs
//	lectern query "What does lesson 2 of the MCP course cover?"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/lectern/pkg/config"
	"github.com/kadirpekel/lectern/pkg/logger"
	"github.com/kadirpekel/lectern/pkg/rag"
	"github.com/kadirpekel/lectern/pkg/server"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Ingest the docs folder and start the HTTP API."`
	Ingest  IngestCmd  `cmd:"" help:"Ingest course documents without serving."`
	Query   QueryCmd   `cmd:"" help:"Answer a single question and exit."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
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
	fmt.Printf("lectern version %s\n", version)
	return nil
}

// ServeCmd ingests the configured docs folder and serves the API.
type ServeCmd struct {
	Port       int    `help:"Port to listen on (overrides config)."`
	DocsFolder string `name:"docs-folder" help:"Folder with course documents (overrides config)." type:"path"`
	Watch      bool   `help:"Re-ingest documents when the docs folder changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.DocsFolder != "" {
		cfg.Server.DocsFolder = c.DocsFolder
	}
	if c.Watch {
		cfg.Server.Watch = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	sys, err := rag.NewSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	if _, err := os.Stat(cfg.Server.DocsFolder); err == nil {
		courses, chunks, err := sys.AddCourseFolder(ctx, cfg.Server.DocsFolder, false)
		if err != nil {
			return fmt.Errorf("startup ingestion failed: %w", err)
		}
		slog.Info("Startup ingestion complete", "courses", courses, "chunks", chunks)
	} else {
		slog.Warn("Docs folder not found, starting with an empty index",
			"folder", cfg.Server.DocsFolder)
	}

	if cfg.Server.Watch {
		go func() {
			if err := sys.Watch(ctx, cfg.Server.DocsFolder); err != nil && ctx.Err() == nil {
				slog.Error("Docs folder watch stopped", "error", err)
			}
		}()
	}

	return server.New(cfg.Server, sys).ListenAndServe(ctx)
}

// IngestCmd ingests a folder of course documents.
type IngestCmd struct {
	Folder string `help:"Folder with course documents." type:"path" default:"docs"`
	Clear  bool   `help:"Drop existing index data before ingesting."`
}

func (c *IngestCmd) Run(cli *CLI) error {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sys, err := rag.NewSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	courses, chunks, err := sys.AddCourseFolder(ctx, c.Folder, c.Clear)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d courses (%d chunks)\n", courses, chunks)
	return nil
}

// QueryCmd answers a single question and exits.
type QueryCmd struct {
	Question []string `arg:"" help:"The question to answer."`
	Session  string   `help:"Session ID for follow-up questions."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	cfg, err := config.LoadConfig(cli.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sys, err := rag.NewSystem(cfg)
	if err != nil {
		return err
	}
	defer sys.Close()

	result, err := sys.Query(ctx, strings.Join(c.Question, " "), c.Session)
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			if src.Link != "" {
				fmt.Printf("  - %s (%s)\n", src.Text, src.Link)
			} else {
				fmt.Printf("  - %s\n", src.Text)
			}
		}
	}
	fmt.Printf("\nSession: %s\n", result.SessionID)
	return nil
}

func main() {
	config.LoadDotEnv()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("lectern"),
		kong.Description("Lectern - retrieval-augmented answers over course transcripts"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(level, os.Stderr, cli.LogFormat)

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
