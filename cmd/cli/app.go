// Package cli hosts ledgersync's command-group files: one file per
// command family and an index.go aggregating every command onto the
// root.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"ledgersync/core/changelog"
	"ledgersync/core/localstore"
	"ledgersync/core/orchestrator"
	"ledgersync/core/remoteclient"
	"ledgersync/internal/config"
	"ledgersync/internal/logging"
)

// App bundles the resources every command needs: the loaded config,
// logger, and a ready-to-use Orchestrator wired to the configured
// archive layout and remote client.
type App struct {
	Config       *config.Config
	Log          *logrus.Logger
	Orchestrator *orchestrator.Orchestrator
	Sink         changelog.Sink
}

// NewApp allocates an empty App. Commands are built against it before
// its fields are known, so callers must invoke Init before running any
// command's RunE. main() does this from the root command's
// PersistentPreRunE, once global flags have been parsed.
func NewApp() *App {
	return &App{}
}

// Init loads configuration, builds the logger, and wires the local
// store / remote client / changelog sink into an Orchestrator, the same
// sequence main() performs for every ledgersync invocation. It populates
// the receiver in place so commands built against NewApp's pointer
// before flag parsing see the real resources once Init returns.
func (a *App) Init(verbose, quiet bool, configPaths ...string) error {
	cfg, err := config.Load(configPaths...)
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Verbose: verbose, Quiet: quiet, Level: cfg.Logging.Level})

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	sink, err := changelog.OpenFileSink(store.ChangelogPath())
	if err != nil {
		return fmt.Errorf("open changelog sink: %w", err)
	}

	remote := remoteclient.NewHTTPClient(cfg.Remote.BaseURL, cfg.RemoteToken(), log)

	orch := orchestrator.New(store, remote, sink, log)
	orch.Concurrency = cfg.Concurrency.Ceiling

	a.Config, a.Log, a.Orchestrator, a.Sink = cfg, log, orch, sink
	return nil
}

// openStore builds the configured archive layout (hierarchical or
// single-file), auto-detecting the sibling changelog file alongside the
// primary archive path per the archive layout's naming rule.
func openStore(cfg *config.Config) (localstore.Store, error) {
	root := cfg.Archive.Root
	switch cfg.Archive.Layout {
	case "single_file":
		return localstore.NewSingleFileStore(root), nil
	case "hierarchical", "":
		return localstore.NewHierarchicalStore(root), nil
	default:
		return nil, fmt.Errorf("unknown archive layout %q", cfg.Archive.Layout)
	}
}

// RulesPath resolves the configured rules directory relative to the
// archive root if it isn't already absolute.
func (a *App) RulesPath() string {
	if filepath.IsAbs(a.Config.RulesDir) {
		return a.Config.RulesDir
	}
	return filepath.Join(a.Config.Archive.Root, a.Config.RulesDir)
}

// Close releases the changelog sink's file handle, if Init succeeded.
func (a *App) Close() error {
	if a.Sink == nil {
		return nil
	}
	return a.Sink.Close()
}
