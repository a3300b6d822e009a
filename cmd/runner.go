package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/browser"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytpub/internal/credentials"
	"github.com/desertthunder/ytpub/internal/repositories"
	"github.com/desertthunder/ytpub/internal/secrets"
	"github.com/desertthunder/ytpub/internal/services"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/storage"
	"github.com/desertthunder/ytpub/internal/tasks"
	"github.com/desertthunder/ytpub/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Database-backed components are built on first use so commands like "setup config" and
// "chapters check" run without a database.
type Runner struct {
	config      *shared.Config
	configPath  string
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	input       io.Reader
	openBrowser func(url string) error

	db      *sql.DB
	ownsDB  bool
	secrets secrets.Store
	videos  services.Factory
	assets  *storage.Router
	app     *app
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Input       io.Reader
	OpenBrowser func(url string) error

	DB      *sql.DB          // opened from config when nil
	Secrets secrets.Store    // chosen by secrets.kind when nil
	Videos  services.Factory // YouTube Data API when nil
	Assets  *storage.Router  // built from the storage section when nil
}

// app is the wired publish pipeline.
type app struct {
	tasks     *repositories.TaskRepository
	revisions *repositories.RevisionRepository
	comments  *repositories.CommentRepository
	channels  *repositories.ChannelRepository
	publishes *repositories.PublishRepository
	secrets   secrets.Store
	resolver  *credentials.Resolver
	assets    *storage.Router
	publisher *tasks.Publisher
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = browser.OpenURL
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		input:       opts.Input,
		openBrowser: opts.OpenBrowser,
		db:          opts.DB,
		secrets:     opts.Secrets,
		videos:      opts.Videos,
		assets:      opts.Assets,
	}
}

// SetLogger replaces the logger used by the runner and every component built after the call.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, secretCommand, channelCommand, taskCommand, publishCommand,
		chaptersCommand, videoCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if r.config.Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}

	if _, err := shared.NewMigrator(db, r.logger).Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.ownsDB = true
	return db, nil
}

func (r *Runner) secretStore(db *sql.DB) (secrets.Store, error) {
	if r.secrets != nil {
		return r.secrets, nil
	}

	switch r.config.Secrets.Kind {
	case "", "db":
		return secrets.NewDBStore(db), nil
	case "env":
		return secrets.NewEnvStore(r.config.Secrets.EnvPrefix), nil
	default:
		return nil, fmt.Errorf("%w: unknown secrets kind %q", shared.ErrInvalidConfig, r.config.Secrets.Kind)
	}
}

func (r *Runner) videoFactory() services.Factory {
	if r.videos == nil {
		yt := r.config.YouTube
		r.videos = services.NewFactory(services.YouTubeOpts{
			ChunkSize:     yt.ChunkSize(),
			UploadTimeout: yt.UploadTimeout.Duration,
			APITimeout:    yt.APITimeout.Duration,
		})
	}
	return r.videos
}

// components wires the publish pipeline on first use.
func (r *Runner) components() (*app, error) {
	if r.app != nil {
		return r.app, nil
	}

	db, err := r.database()
	if err != nil {
		return nil, err
	}

	store, err := r.secretStore(db)
	if err != nil {
		return nil, err
	}

	assets := r.assets
	if assets == nil {
		if assets, err = storage.New(r.config.Storage); err != nil {
			return nil, err
		}
	}

	cfg := r.config
	resolver := credentials.NewResolver(store, credentials.ResolverOpts{
		Scope:       cfg.YouTube.Project,
		ClientKey:   cfg.YouTube.ClientSecretKey,
		RedirectURL: cfg.Server.RedirectURL,
		HTTPClient:  r.httpClient,
		Owner:       r.videoFactory().OwnedChannels,
	})

	a := &app{
		tasks:     repositories.NewTaskRepository(db),
		revisions: repositories.NewRevisionRepository(db),
		comments:  repositories.NewCommentRepository(db),
		channels:  repositories.NewChannelRepository(db),
		publishes: repositories.NewPublishRepository(db),
		secrets:   store,
		resolver:  resolver,
		assets:    assets,
	}

	pool := tasks.NewPool(tasks.PoolOpts{
		Size:          cfg.Workers.Size,
		Queue:         cfg.Workers.Queue,
		RatePerMinute: cfg.Workers.RatePerMinute,
	}, r.logger)

	a.publisher = tasks.NewPublisher(tasks.PublisherDeps{
		Tasks:     a.tasks,
		Revisions: a.revisions,
		Channels:  a.channels,
		Publishes: a.publishes,
		Resolver:  resolver,
		Assets:    assets,
		Videos:    r.videoFactory(),
		Thumbnails: services.NewThumbnailFetcher(services.ThumbnailFetcherOpts{
			ConnectTimeout: cfg.Thumbnail.ConnectTimeout.Duration,
			ReadTimeout:    cfg.Thumbnail.ReadTimeout.Duration,
			MaxBytes:       cfg.Thumbnail.MaxBytes,
		}),
		Pool:   pool,
		Logger: r.logger,
	}, tasks.PublisherOpts{
		WatchURL:      cfg.YouTube.WatchURL,
		UploadTimeout: cfg.YouTube.UploadTimeout.Duration,
	})

	r.app = a
	return a, nil
}

// Close drains queued publishes and closes the database when the runner opened it.
func (r *Runner) Close(ctx context.Context) error {
	if r.app != nil {
		if err := r.app.publisher.Shutdown(ctx); err != nil {
			r.logger.Warn("publisher did not drain", "error", err)
		}
		r.app = nil
	}
	if r.ownsDB && r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

// withApp runs action with the wired pipeline and closes it afterwards.
func (r *Runner) withApp(action func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := r.components()
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), r.drainTimeout())
			defer cancel()
			if err := r.Close(closeCtx); err != nil {
				r.logger.Warn("failed to close database", "error", err)
			}
		}()
		return action(ctx, cmd, a)
	}
}

// drainTimeout bounds how long a command waits for queued uploads before cancelling them.
func (r *Runner) drainTimeout() time.Duration {
	if d := r.config.YouTube.UploadTimeout.Duration; d > 0 {
		return d
	}
	return 6 * time.Hour
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", ui.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
