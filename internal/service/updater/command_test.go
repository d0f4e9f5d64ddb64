package updater

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/dolphin-updater/internal/config"
	"github.com/oshokin/dolphin-updater/internal/console"
	"github.com/oshokin/dolphin-updater/internal/domain/build"
	"github.com/oshokin/dolphin-updater/internal/source"
)

// stubSource serves a fixed status without touching the network.
type stubSource struct {
	status    *build.Status
	presenter *console.Presenter
}

func (s stubSource) Variant() build.Variant { return s.status.Variant }

func (s stubSource) Status() *build.Status { return s.status }

func (s stubSource) WriteListing() { s.presenter.Println("available builds") }

// recordingConfirmer counts prompts and answers with a fixed verdict.
type recordingConfirmer struct {
	answer bool
	calls  int
}

func (c *recordingConfirmer) Confirm(string) (bool, error) {
	c.calls++
	return c.answer, nil
}

// writeStartableBinary creates a Dolphin.exe that can actually be started
// on Unix platforms, so the final launch step succeeds.
func writeStartableBinary(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	return path
}

type installRecorder struct {
	calls int
	dir   string
	url   string
	fail  error
}

func (r *installRecorder) install(_ context.Context, dir, downloadURL string) error {
	r.calls++
	r.dir = dir
	r.url = downloadURL

	return r.fail
}

func newTestRunner(
	binaryPath string,
	status *build.Status,
	confirmer console.Confirmer,
	recorder *installRecorder,
	out *bytes.Buffer,
) *runner {
	presenter := console.NewPresenter(out, false)

	return &runner{
		cfg:        config.Default(),
		binaryPath: binaryPath,
		installDir: filepath.Dir(binaryPath),
		presenter:  presenter,
		confirmer:  confirmer,
		client:     http.DefaultClient,
		newSource: func(context.Context, *http.Client, *config.Config,
			*console.Presenter, string) (source.Source, error) {
			return stubSource{status: status, presenter: presenter}, nil
		},
		install: recorder.install,
	}
}

func TestValidateBinaryPath(t *testing.T) {
	t.Parallel()

	t.Run("rejects a different executable name", func(t *testing.T) {
		t.Parallel()

		_, err := validateBinaryPath(`C:\emu\Foo.exe`)
		require.ErrorIs(t, err, errUnexpectedBinaryName)
	})

	t.Run("rejects a missing binary", func(t *testing.T) {
		t.Parallel()

		_, err := validateBinaryPath(filepath.Join(t.TempDir(), BinaryName))
		require.ErrorIs(t, err, errBinaryMissing)
	})

	t.Run("resolves an existing binary", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		expected := filepath.Join(dir, BinaryName)
		require.NoError(t, os.WriteFile(expected, []byte("build"), 0o755))

		resolved, err := validateBinaryPath(expected)
		require.NoError(t, err)
		require.Equal(t, expected, resolved)
	})
}

func TestRunRejectsForeignPath(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{BinaryPath: `C:\emu\Foo.exe`})
	require.ErrorIs(t, err, errUnexpectedBinaryName)
}

func TestRunSkipsInstallWhenCurrent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on shell script executables")
	}

	t.Parallel()

	dir := t.TempDir()
	binaryPath := writeStartableBinary(t, dir)
	confirmer := &recordingConfirmer{answer: true}
	recorder := &installRecorder{}

	var out bytes.Buffer

	up := newTestRunner(binaryPath, &build.Status{
		BinaryPath: binaryPath,
		Variant:    build.VariantMainline,
		Installed:  "5.0-21290",
		Latest:     build.Release{Version: "5.0-21290"},
	}, confirmer, recorder, &out)

	require.NoError(t, up.Run(context.Background()))

	require.Zero(t, confirmer.calls)
	require.Zero(t, recorder.calls)
	require.Contains(t, out.String(), "You are updating:")
	require.NotContains(t, out.String(), "Current version installed:")
}

func TestRunInstallsAfterConfirmation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on shell script executables")
	}

	t.Parallel()

	dir := t.TempDir()
	binaryPath := writeStartableBinary(t, dir)
	confirmer := &recordingConfirmer{answer: true}
	recorder := &installRecorder{}

	var out bytes.Buffer

	up := newTestRunner(binaryPath, &build.Status{
		BinaryPath: binaryPath,
		Variant:    build.VariantMainline,
		Installed:  "5.0-21280",
		Latest: build.Release{
			Version:     "5.0-21290",
			DownloadURL: "https://dl.dolphin-emu.org/builds/dolphin-master-5.0-21290-x64.7z",
		},
	}, confirmer, recorder, &out)

	require.NoError(t, up.Run(context.Background()))

	require.Equal(t, 1, confirmer.calls)
	require.Equal(t, 1, recorder.calls)
	require.Equal(t, dir, recorder.dir)
	require.Equal(t, "https://dl.dolphin-emu.org/builds/dolphin-master-5.0-21290-x64.7z", recorder.url)

	require.Contains(t, out.String(), "Current version installed:")
	require.Contains(t, out.String(), "available builds")
}

func TestRunKeepsBuildWhenDeclined(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on shell script executables")
	}

	t.Parallel()

	dir := t.TempDir()
	binaryPath := writeStartableBinary(t, dir)
	confirmer := &recordingConfirmer{answer: false}
	recorder := &installRecorder{}

	var out bytes.Buffer

	up := newTestRunner(binaryPath, &build.Status{
		BinaryPath: binaryPath,
		Variant:    build.VariantIshiiruka,
		Installed:  "1115",
		Latest:     build.Release{Version: "1120", DownloadURL: "https://dl.example/1120.7z"},
	}, confirmer, recorder, &out)

	// Declining still starts the emulator, just without updating it.
	require.NoError(t, up.Run(context.Background()))

	require.Equal(t, 1, confirmer.calls)
	require.Zero(t, recorder.calls)
	require.Contains(t, out.String(), "available builds")
}

func TestRunWrapsInstallFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	binaryPath := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(binaryPath, []byte("build"), 0o755))

	confirmer := &recordingConfirmer{answer: true}
	recorder := &installRecorder{fail: errors.New("disk full")}

	var out bytes.Buffer

	up := newTestRunner(binaryPath, &build.Status{
		BinaryPath: binaryPath,
		Variant:    build.VariantMainline,
		Installed:  "5.0-21280",
		Latest:     build.Release{Version: "5.0-21290", DownloadURL: "https://dl.example/x64.7z"},
	}, confirmer, recorder, &out)

	err := up.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "install build 5.0-21290")
	require.Contains(t, err.Error(), "disk full")
}

func TestMarkerGuard(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	require.False(t, IsUpdaterRunningNow(ctx, dir))

	markerPath := filepath.Join(dir, MarkerFilename)
	require.NoError(t, os.WriteFile(markerPath, nil, 0o600))
	require.True(t, IsUpdaterRunningNow(ctx, dir))

	// A marker left by a crashed run is reclaimed once it goes stale.
	staleTime := time.Now().Add(-2 * markerLifetime)
	require.NoError(t, os.Chtimes(markerPath, staleTime, staleTime))
	require.False(t, IsUpdaterRunningNow(ctx, dir))
	require.NoFileExists(t, markerPath)
}
