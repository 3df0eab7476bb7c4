package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"sheetsync/internal/archive"
	"sheetsync/internal/config"
	"sheetsync/internal/encryption"
	"sheetsync/internal/journal"
	"sheetsync/internal/metrics"
	"sheetsync/internal/record"
	"sheetsync/internal/remote"
	"sheetsync/internal/selection"
	"sheetsync/internal/store"
)

// App is the application layer between the CLI and the record store.
// It constructs all dependencies from config, exposes high-level operations
// and closes the journal and log file on Close.
type App struct {
	cfg       *config.Config
	kind      record.Kind
	loc       *time.Location
	clock     store.Clock
	store     *store.Store
	journal   *journal.SQLiteJournal
	selection *selection.Area
	archive   archive.Archive
	encryptor encryption.Encryptor
	metrics   *metrics.Collector
	logger    *slogAdapter
	logFile   *os.File
	op        *Operation
}

type options struct {
	console    io.Writer
	verbose    bool
	httpClient *http.Client
	clock      store.Clock
	idgen      store.IDGenerator
}

// Option configures NewApp.
type Option func(*options)

// WithConsole sets where log lines are echoed besides the log file.
// Defaults to stderr.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithVerbose enables debug logging.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// WithHTTPClient replaces the client built from remote.timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithClock replaces the wall clock.
func WithClock(c store.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator replaces the temporary id generator.
func WithIDGenerator(g store.IDGenerator) Option {
	return func(o *options) { o.idgen = g }
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "List", "Print").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation, parameters string, opts ...Option) (*App, error) {
	o := options{
		console: os.Stderr,
		clock:   store.RealClock{},
		idgen:   store.TempIDGenerator{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	kind, err := record.LookupKind(cfg.Remote.Kind)
	if err != nil {
		return nil, err
	}
	kind = kind.WithActions(record.Actions(cfg.Remote.Actions))
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	op := NewOperation(operation, parameters, o.clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, op.ID, o.console, o.verbose)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &App{
		cfg:     cfg,
		kind:    kind,
		loc:     loc,
		clock:   o.clock,
		logger:  &slogAdapter{l: logger},
		logFile: logFile,
		op:      op,
		metrics: metrics.NewCollector(),
	}
	ready := false
	defer func() {
		if !ready {
			a.closeResources()
		}
	}()

	a.journal, err = journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}
	if err := a.journal.CheckMigrations(); err != nil {
		return nil, fmt.Errorf("journal schema out of date, run `sheetsync journal migrate`: %w", err)
	}

	a.selection, err = selection.NewAreaFromConfig(cfg.Selection)
	if err != nil {
		return nil, fmt.Errorf("creating selection area: %w", err)
	}

	a.archive, err = archive.NewArchiveFromConfig(ctx, cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	a.encryptor, err = encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	hc := o.httpClient
	if hc == nil {
		timeout, _ := cfg.RequestTimeout()
		hc = &http.Client{Timeout: timeout}
	}
	client, err := remote.NewClient(cfg.Remote.Endpoint, kind,
		remote.WithHTTPClient(hc),
		remote.WithClock(o.clock),
		remote.WithObserver(a.metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("creating remote client: %w", err)
	}

	a.store = store.NewStore(client, a.journal, a.logger, o.clock, o.idgen, store.Options{
		NewestFirst:        cfg.Store.NewestFirst,
		Reconcile:          cfg.Store.Reconcile,
		SerializePerRecord: cfg.Store.SerializePerRecord,
		Observer:           a.metrics,
	})

	a.logger.Debug("operation started", "operation", op.Name, "kind", kind.Name, "params", op.Parameters)
	ready = true
	return a, nil
}

// Kind returns the record kind the app is configured for.
func (a *App) Kind() record.Kind {
	return a.kind
}

// Location returns the timezone used for dates.
func (a *App) Location() *time.Location {
	return a.loc
}

// Store exposes the underlying record store.
func (a *App) Store() *store.Store {
	return a.store
}

// Metrics returns the app's metrics collector.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

// ServeAddr returns the configured listen address of the web view.
func (a *App) ServeAddr() string {
	return a.cfg.Serve.Addr
}

// Operation returns the operation this app was created for.
func (a *App) Operation() *Operation {
	return a.op
}

// Close logs the outcome of the operation and closes all resources.
func (a *App) Close() error {
	a.logger.Debug("operation finished",
		"operation", a.op.Name,
		"failed", a.op.Failed(),
		"duration", a.clock.Now().Sub(a.op.StartedAt).Truncate(time.Millisecond),
	)
	return a.closeResources()
}

func (a *App) closeResources() error {
	var errs []error
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing journal: %w", err))
		}
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing log file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// MigrateJournal opens the configured journal and applies pending schema
// migrations. It is the only way a sqlite journal gets its schema.
func MigrateJournal(cfg *config.Config) error {
	j, err := journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer j.Close()
	if err := j.MigrateUp(); err != nil {
		return fmt.Errorf("migrating journal: %w", err)
	}
	return nil
}
