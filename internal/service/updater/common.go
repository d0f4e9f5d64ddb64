package updater

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/dolphin-updater/internal/logger"
)

const (
	// BinaryName is the fixed filename every updated installation is keyed on.
	BinaryName = "Dolphin.exe"

	// MarkerFilename marks that the updater is running right now to avoid parallel execution.
	// The marker lives next to the updated binary, so two updaters pointed at
	// different installations do not block each other.
	MarkerFilename = "dolphin-updater-marker.bin"

	// markerLifetime is the period after which a stale update marker is ignored.
	markerLifetime = 30 * time.Second

	// baseUpdaterExecutable is this tool's own binary name, used for stale marker recovery.
	baseUpdaterExecutable = "dolphin-updater"
)

// IsUpdaterRunningNow checks presence of a marker file in dir and attempts recovery if it looks stale.
func IsUpdaterRunningNow(ctx context.Context, dir string) bool {
	logger.Debug(ctx, "Checking for the presence of an update marker")

	markerPath := filepath.Join(dir, MarkerFilename)

	fileInfo, err := os.Stat(markerPath)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The update marker is too old, attempting cleanup")

		if err = terminateProcessByName(updaterExecutable()); err != nil {
			return true
		}

		if err = os.Remove(markerPath); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		logger.Debug(ctx, "Update marker not found, continuing")
		return false
	}

	logger.Infof(ctx, "Unable to read update marker: %v", err)

	return false
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}

func updaterExecutable() string {
	return baseUpdaterExecutable + getExecutableExtension()
}
