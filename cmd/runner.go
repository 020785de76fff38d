package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/music-downloader-hub/tunepull/internal/formats"
	"github.com/music-downloader-hub/tunepull/internal/queue"
	"github.com/music-downloader-hub/tunepull/internal/repositories"
	"github.com/music-downloader-hub/tunepull/internal/services"
	"github.com/music-downloader-hub/tunepull/internal/shared"
	"github.com/music-downloader-hub/tunepull/internal/tracker"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	catalog    *services.CatalogClient
	downloads  *services.DownloadsClient
	resolver   *formats.Resolver
	manager    *tracker.Manager
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db    *sql.DB
	store *queue.Store
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Catalog    *services.CatalogClient
	Downloads  *services.DownloadsClient
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Downloads == nil {
		opts.Downloads = services.NewDownloadsClient(opts.Config.Backend.BaseURL, opts.HTTPClient)
	}
	if opts.Catalog == nil {
		opts.Catalog = services.NewCatalogClient(services.CatalogOpts{
			SearchURL: opts.Config.Catalog.SearchURL,
			LookupURL: opts.Config.Catalog.LookupURL,
			Country:   opts.Config.Catalog.Country,
			Limit:     opts.Config.Catalog.Limit,
			RateLimit: opts.Config.Catalog.RateLimit,
			Client:    opts.HTTPClient,
		})
	}

	manager := tracker.NewManager(opts.Downloads, tracker.Opts{
		OutputDir: opts.Config.Downloads.OutputDir,
		AutoOpen:  opts.Config.Downloads.AutoOpen,
		Logger:    opts.Logger,
	})

	return &Runner{
		config:     opts.Config,
		catalog:    opts.Catalog,
		downloads:  opts.Downloads,
		resolver:   formats.NewResolver(opts.Downloads),
		manager:    manager,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, rebuilding the tracker manager's
// logger alongside it.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// openStore lazily opens the queue database and wires the store over it.
func (r *Runner) openStore() (*queue.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.store = queue.NewStore(
		repositories.NewQueueItemRepository(db),
		repositories.NewQueueGroupRepository(db),
		r.resolver,
		r.downloads,
		r.logger,
	)
	return r.store, nil
}

// Close releases the runner's database handle, if open.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.store = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, searchCommand, albumCommand, downloadCommand, jobsCommand, queueCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
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
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
