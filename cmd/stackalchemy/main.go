// Copyright 2025 Poiesic Systems
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/stackalchemy"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the CLI. opts are passed to stackalchemy.Open by every
// command that needs the full application.
func newApp(opts ...stackalchemy.Option) *cli.App {
	a := &actions{opts: opts}

	return &cli.App{
		Name:  "stackalchemy",
		Usage: "Index GitHub repositories and ask questions about their code",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (default ~/.stackalchemy/config.toml)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "PostgreSQL connection string; selects the postgres backend",
				EnvVars: []string{"STACKALCHEMY_DSN"},
			},
			&cli.StringFlag{
				Name:  "ai-host",
				Usage: "Host URL for both embedding and generation services",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
			&cli.StringFlag{
				Name:  "generation-model",
				Usage: "Model used for summaries and answers",
			},
			&cli.StringFlag{
				Name:    "github-token",
				Usage:   "Default GitHub token",
				EnvVars: []string{"GITHUB_TOKEN"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:  "user",
				Usage: "Manage users",
				Subcommands: []*cli.Command{
					{
						Name:   "add",
						Usage:  "Register a user",
						Action: a.addUser,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
							&cli.StringFlag{Name: "name", Usage: "Display name"},
						},
					},
				},
			},
			{
				Name:  "project",
				Usage: "Manage projects",
				Subcommands: []*cli.Command{
					{
						Name:   "create",
						Usage:  "Create a project and index its repository",
						Action: a.createProject,
						Flags: []cli.Flag{
							userFlag(),
							&cli.StringFlag{Name: "name", Usage: "Project name", Required: true},
							&cli.StringFlag{Name: "url", Usage: "Repository URL, https://github.com/owner/repo", Required: true},
							&cli.StringFlag{Name: "token", Usage: "GitHub token for a private repository"},
						},
					},
					{
						Name:   "list",
						Usage:  "List your projects",
						Action: a.listProjects,
						Flags:  []cli.Flag{userFlag()},
					},
					{
						Name:   "delete",
						Usage:  "Delete a project",
						Action: a.deleteProject,
						Flags:  []cli.Flag{userFlag(), projectFlag()},
					},
				},
			},
			{
				Name:   "commits",
				Usage:  "Show summarized commits and check for new ones",
				Action: a.listCommits,
				Flags:  []cli.Flag{userFlag(), projectFlag()},
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about a project's code",
				ArgsUsage: "<question>",
				Action:    a.ask,
				Flags: []cli.Flag{
					userFlag(),
					projectFlag(),
					&cli.BoolFlag{Name: "save", Usage: "Save the question and answer"},
				},
			},
			{
				Name:   "questions",
				Usage:  "List saved questions",
				Action: a.listQuestions,
				Flags:  []cli.Flag{userFlag(), projectFlag()},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the summary vectors of a project",
				Action: a.reembed,
				Flags: []cli.Flag{
					projectFlag(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of files to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N files",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Email of the acting user",
		EnvVars:  []string{"STACKALCHEMY_USER"},
		Required: true,
	}
}

func projectFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "project",
		Aliases:  []string{"p"},
		Usage:    "Project ID",
		Required: true,
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
