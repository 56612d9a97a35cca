package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/soundcheck/internal/guard"
	"github.com/desertthunder/soundcheck/internal/profile"
	"github.com/desertthunder/soundcheck/internal/services"
	"github.com/desertthunder/soundcheck/internal/session"
	"github.com/desertthunder/soundcheck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	navigator  shared.Navigator
	guard      *guard.Guard
	ephemeral  bool

	store   session.TokenStore
	db      *sql.DB
	session *session.Manager
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Navigator  shared.Navigator   // opens the login URL; defaults to the system browser
	Store      session.TokenStore // defaults to the SQLite settings table at database.path
	Ephemeral  bool               // keep the token in memory and never open the database
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
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Client.RequestTimeout.Duration}
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		navigator:  opts.Navigator,
		guard:      guard.New(),
		ephemeral:  opts.Ephemeral,
		store:      opts.Store,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, loginCommand, logoutCommand, statusCommand,
		profileCommand, exportCommand, artistCommand, trackCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// rootFlags are accepted ahead of any command.
func (r *Runner) rootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "ephemeral",
			Usage: "Keep the session in memory only; the token database is not read or written",
		},
	}
}

// before applies the root flags before the command action runs.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("ephemeral") {
		r.ephemeral = true
	}
	return ctx, nil
}

// SetLogger swaps the logger, e.g. for a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the token database if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// tokenStore returns the configured store, opening and migrating the database on first use.
func (r *Runner) tokenStore() (session.TokenStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	if r.ephemeral {
		r.store = session.NewMemoryTokenStore()
		return r.store, nil
	}

	db, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}
	r.db = db
	r.store = session.NewSQLiteTokenStore(db)
	return r.store, nil
}

// sessionManager restores the session from the token store once per process.
func (r *Runner) sessionManager(ctx context.Context) (*session.Manager, error) {
	if r.session != nil {
		return r.session, nil
	}

	store, err := r.tokenStore()
	if err != nil {
		return nil, err
	}

	m, err := session.NewManager(ctx, store, session.Options{
		LoginURL:  r.config.Client.LoginURL(),
		Navigator: r.navigator,
		Logger:    r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.session = m
	return m, nil
}

// upstream returns a proxy client configured with the client's top items options.
func (r *Runner) upstream() *services.APIService {
	return services.NewAPIService(r.config.Client.APIURL, r.httpClient).WithTopOptions(services.TopOptions{
		TimeRange: r.config.Client.TimeRange,
		Limit:     r.config.Client.Limit,
	})
}

func (r *Runner) aggregator(sess *session.Manager) *profile.Aggregator {
	return profile.NewAggregator(r.upstream(), sess, r.logger)
}

func (r *Runner) detailFetcher(sess *session.Manager) *profile.DetailFetcher {
	return profile.NewDetailFetcher(r.upstream(), sess, r.logger)
}

// authorize runs the route guard for dest against the current session.
func (r *Runner) authorize(sess *session.Manager, dest guard.Destination) error {
	decision := r.guard.Resolve(dest, sess.State())
	if decision.Allow {
		return nil
	}
	r.logger.Debug("navigation redirected", "from", dest, "to", decision.Redirect)
	return fmt.Errorf("%w: run 'soundcheck login' first", shared.ErrNotAuthenticated)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
