package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/poiesic/stackalchemy"
	"github.com/poiesic/stackalchemy/config"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/projects"
	"github.com/poiesic/stackalchemy/reembed"
	"github.com/poiesic/stackalchemy/storage"
	"github.com/urfave/cli/v2"
)

type actions struct {
	opts []stackalchemy.Option
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Backend = config.BackendBadger
		cfg.Storage.Path = db
	}
	if dsn := c.String("dsn"); dsn != "" {
		cfg.Storage.Backend = config.BackendPostgres
		cfg.Storage.DSN = dsn
	}
	if host := c.String("ai-host"); host != "" {
		cfg.AI.EmbeddingHost = host
		cfg.AI.GenerationHost = host
	}
	if model := c.String("embedding-model"); model != "" {
		cfg.AI.EmbeddingModel = model
	}
	if model := c.String("generation-model"); model != "" {
		cfg.AI.GenerationModel = model
	}
	if token := c.String("github-token"); token != "" {
		cfg.GitHub.Token = token
	}
	return cfg, cfg.Validate()
}

func (a *actions) open(c *cli.Context) (*stackalchemy.App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	app, err := stackalchemy.Open(cfg, a.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open stackalchemy: %w", err)
	}
	return app, nil
}

// signIn resolves --user to a session context.
func signIn(c *cli.Context, app *stackalchemy.App) (context.Context, error) {
	user, err := app.Store().Users().FindUserByEmail(c.Context, c.String("user"))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.New(projects.MsgUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return projects.WithUser(c.Context, user.Id), nil
}

func projectID(c *cli.Context) core.ID {
	return core.ID(c.Uint64("project"))
}

func (a *actions) addUser(c *cli.Context) error {
	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := app.Store().Users().AddUser(c.Context, &core.User{
		Email: c.String("email"),
		Name:  c.String("name"),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("user %s already exists", c.String("email"))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Added user %d (%s)\n", user.Id, user.Email)
	return nil
}

func (a *actions) createProject(c *cli.Context) error {
	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx, err := signIn(c, app)
	if err != nil {
		return err
	}

	start := time.Now()
	fmt.Fprintf(os.Stderr, "Indexing %s...\n", c.String("url"))
	project, err := app.Service().CreateProject(ctx, projects.CreateProjectInput{
		Name:        c.String("name"),
		RepoURL:     c.String("url"),
		GitHubToken: c.String("token"),
	})
	if err != nil {
		return err
	}
	count, err := app.Store().Embeddings().CountEmbeddings(ctx, project.Id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Created project %d (%s): %d files indexed in %s\n",
		project.Id, project.Name, count, time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *actions) listProjects(c *cli.Context) error {
	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx, err := signIn(c, app)
	if err != nil {
		return err
	}

	list, err := app.Service().ListProjects(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tREPOSITORY\tCREATED")
	for _, p := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Id, p.Name, p.RepoURL, p.CreatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

func (a *actions) deleteProject(c *cli.Context) error {
	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx, err := signIn(c, app)
	if err != nil {
		return err
	}

	project, err := app.Service().DeleteProject(ctx, projectID(c))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted project %d (%s)\n", project.Id, project.Name)
	return nil
}

func (a *actions) listCommits(c *cli.Context) error {
	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx, err := signIn(c, app)
	if err != nil {
		return err
	}

	stored, err := app.Service().GetCommits(ctx, projectID(c))
	if err != nil {
		return err
	}
	for _, commit := range stored {
		fmt.Fprintf(c.App.Writer, "%s  %s  %s\n", shortHash(commit.Hash), commit.CommittedAt.Format(time.DateOnly), firstLine(commit.Message))
		if commit.Summary != "" {
			fmt.Fprintf(c.App.Writer, "    %s\n", strings.ReplaceAll(commit.Summary, "\n", "\n    "))
		}
	}
	// The background poll finishes before the app closes; new commits
	// show up on the next run.
	return nil
}

func (a *actions) ask(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}

	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx, err := signIn(c, app)
	if err != nil {
		return err
	}

	answer, err := app.Service().AskQuestion(ctx, projectID(c), question, func(chunk string) error {
		_, err := fmt.Fprint(c.App.Writer, chunk)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer)
	fmt.Fprintln(c.App.Writer)
	for _, ref := range answer.FileReferences {
		fmt.Fprintf(c.App.Writer, "  - %s\n", ref.FileName)
	}

	if c.Bool("save") {
		saved, err := app.Service().SaveAnswer(ctx, projects.SaveAnswerInput{
			ProjectID:      projectID(c),
			Question:       question,
			Answer:         answer.Text,
			FileReferences: answer.FileReferences,
		})
		if err != nil {
			return err
		}
		slog.Debug("answer saved", "question", saved.Id)
		fmt.Fprintf(c.App.Writer, "Saved as question %d\n", saved.Id)
	}
	return nil
}

func (a *actions) listQuestions(c *cli.Context) error {
	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()
	ctx, err := signIn(c, app)
	if err != nil {
		return err
	}

	questions, err := app.Service().ListQuestions(ctx, projectID(c))
	if err != nil {
		return err
	}
	for _, q := range questions {
		fmt.Fprintf(c.App.Writer, "[%d] %s\n%s\n", q.Id, q.Question, q.Answer)
		for _, ref := range q.FileReferences {
			fmt.Fprintf(c.App.Writer, "  - %s\n", ref.FileName)
		}
		fmt.Fprintln(c.App.Writer)
	}
	return nil
}

func (a *actions) reembed(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	app, err := a.open(c)
	if err != nil {
		return err
	}
	defer app.Close()

	reembedder, err := app.NewReembedder(reembedConfig, c.App.ErrWriter)
	if err != nil {
		return err
	}
	result, err := reembedder.Run(c.Context, projectID(c))
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Reembedded %d of %d files (%d skipped) in %s\n",
		result.Reembedded, result.Total, result.Skipped, result.Elapsed.Round(time.Millisecond))
	return nil
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
