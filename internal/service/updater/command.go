package updater

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/oshokin/dolphin-updater/internal/config"
	"github.com/oshokin/dolphin-updater/internal/console"
	"github.com/oshokin/dolphin-updater/internal/logger"
	"github.com/oshokin/dolphin-updater/internal/service/installer"
	"github.com/oshokin/dolphin-updater/internal/source"
)

var (
	errUpdaterAlreadyRunning = errors.New("the updater is already running")
	errUnexpectedBinaryName  = errors.New("path must end with 'Dolphin.exe'")
	errBinaryMissing         = errors.New("no Dolphin.exe found")
	errUnsupportedOS         = errors.New("os not supported")
)

// Options are inputs accepted by the updater entry point.
type Options struct {
	// BinaryPath is the Dolphin.exe to check, update and start.
	BinaryPath string
	// ConfigPath is the optional path to settings YAML file.
	ConfigPath string
	// AssumeYes answers the update confirmation without asking.
	AssumeYes bool
}

// runner holds the mutable state and helpers for a single update execution.
// It is intentionally unexported—call Run(ctx, Options) from callers.
type runner struct {
	cfg        *config.Config     // Settings loaded from YAML.
	binaryPath string             // Absolute path of the target binary.
	installDir string             // Directory the binary lives in.
	markerPath string             // Running marker, empty until this run created it.
	presenter  *console.Presenter // User-facing output.
	confirmer  console.Confirmer  // Update confirmation strategy.
	client     *http.Client       // Shared client for listings and downloads.

	// newSource and install are swapped in tests to avoid real listings
	// and downloads.
	newSource func(ctx context.Context, client *http.Client, cfg *config.Config,
		p *console.Presenter, binaryPath string) (source.Source, error)
	install func(ctx context.Context, dir, downloadURL string) error
}

// Run executes the updater lifecycle and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "dolphin-updater")

	up, err := newRunner(ctx, opts)
	if err != nil {
		up.cleanup(ctx)
		return err
	}

	defer up.cleanup(ctx)

	if err = up.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Updater run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Updater completed")

	return nil
}

// newRunner validates the target path before anything else, loads the
// settings and writes a marker to avoid concurrent runs against the same
// installation.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	up := &runner{
		client:    http.DefaultClient,
		newSource: source.New,
	}

	binaryPath, err := validateBinaryPath(opts.BinaryPath)
	if err != nil {
		return up, err
	}

	up.binaryPath = binaryPath
	up.installDir = filepath.Dir(binaryPath)

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return up, err
	}

	up.cfg = settings

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	if IsUpdaterRunningNow(ctx, up.installDir) {
		return up, errUpdaterAlreadyRunning
	}

	markerPath := filepath.Join(up.installDir, MarkerFilename)

	updateMarker, err := os.Create(filepath.Clean(markerPath))
	if err != nil {
		return up, err
	}

	if err = updateMarker.Close(); err != nil {
		return up, err
	}

	up.markerPath = markerPath

	up.presenter = console.NewPresenter(os.Stdout, true)
	if opts.AssumeYes {
		up.confirmer = console.AcceptAll{}
	} else {
		up.confirmer = &console.StdinConfirmer{In: os.Stdin, Out: os.Stdout}
	}

	archiver := &installer.SevenZip{Path: settings.ArchiverPath}
	up.install = installer.New(up.client, archiver, up.presenter).Install

	return up, nil
}

// Run executes the workflow for this runner instance:
// 1) Detect the distribution line and fetch its version listing.
// 2) Compare the installed version against the latest release.
// 3) On a mismatch, show the listing and ask for confirmation.
// 4) Stop running emulator processes and install the latest build.
// 5) Start the (possibly updated) binary.
func (u *runner) Run(ctx context.Context) error {
	u.presenter.Printf("You are updating:\t\t %s\n", u.presenter.Installed(u.binaryPath))

	src, err := u.newSource(ctx, u.client, u.cfg, u.presenter, u.binaryPath)
	if err != nil {
		return fmt.Errorf("resolve version source: %w", err)
	}

	status := src.Status()
	logger.InfoKV(ctx, "Resolved versions",
		"variant", status.Variant.String(),
		"installed", status.Installed,
		"latest", status.Latest.Version)

	if err = u.updateIfOutdated(ctx, src); err != nil {
		return err
	}

	logger.Info(ctx, "Starting the emulator")

	if err = u.startBinary(ctx); err != nil {
		return fmt.Errorf("start emulator: %w", err)
	}

	return nil
}

// updateIfOutdated installs the latest release when the installed version
// differs from it and the operator confirms.
func (u *runner) updateIfOutdated(ctx context.Context, src source.Source) error {
	status := src.Status()
	if !status.Outdated() {
		logger.InfoKV(ctx, "Build is current, nothing to update", "version", status.Installed)
		return nil
	}

	u.presenter.Printf("Current version installed:\t %s\n", u.presenter.Installed(status.Installed))
	src.WriteListing()

	confirmed, err := u.confirmer.Confirm("Press Enter to update")
	if err != nil {
		return fmt.Errorf("confirm update: %w", err)
	}

	if !confirmed {
		logger.Info(ctx, "Update declined, keeping the installed build")
		return nil
	}

	logger.Info(ctx, "Terminating emulator processes forcibly")

	if err = terminateProcessByName(filepath.Base(u.binaryPath)); err != nil {
		return fmt.Errorf("terminate emulator processes: %w", err)
	}

	logger.InfoKV(ctx, "Installing the latest build",
		"version", status.Latest.Version, "url", status.Latest.DownloadURL)

	if err = u.install(ctx, u.installDir, status.Latest.DownloadURL); err != nil {
		return fmt.Errorf("install build %s: %w", status.Latest.Version, err)
	}

	return nil
}

// startBinary launches the emulator detached so the updater can exit.
func (u *runner) startBinary(ctx context.Context) error {
	logger.InfoKV(ctx, "Starting executable", "executable", u.binaryPath)

	osLC := strings.ToLower(runtime.GOOS)
	switch {
	case strings.Contains(osLC, "linux") || strings.Contains(osLC, "darwin"):
		return exec.CommandContext(ctx, u.binaryPath).Start()
	case strings.Contains(osLC, "windows"):
		return exec.CommandContext(ctx, "cmd.exe", "/C", "start", u.binaryPath).Start()
	default:
		return fmt.Errorf("%s OS is not supported: %w", runtime.GOOS, errUnsupportedOS)
	}
}

// cleanup removes the running marker if this execution created it.
func (u *runner) cleanup(ctx context.Context) {
	if u.markerPath != "" {
		if _, err := os.Stat(u.markerPath); err == nil {
			_ = os.Remove(u.markerPath)
		}
	}

	logger.Info(ctx, "The updater has been stopped")
}

// validateBinaryPath enforces the fixed target filename and resolves the
// given path to an existing file. Both checks run before any network access.
func validateBinaryPath(path string) (string, error) {
	if path == "" {
		path = BinaryName
	}

	if !strings.HasSuffix(path, BinaryName) {
		return "", fmt.Errorf("%s: %w", path, errUnexpectedBinaryName)
	}

	absolutePath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	if _, err = os.Stat(absolutePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w at '%s'", errBinaryMissing, absolutePath)
		}

		return "", fmt.Errorf("inspect %s: %w", absolutePath, err)
	}

	return absolutePath, nil
}
