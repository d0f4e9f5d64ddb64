package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/dolphin-updater/internal/console"
	"github.com/oshokin/dolphin-updater/internal/logger"
)

const (
	// ArchiveFilename is the fixed name the downloaded build archive is saved under.
	ArchiveFilename = "Dolphin.7z"

	// ExtractDirname is the scratch directory the archive is unpacked into.
	ExtractDirname = "Extracted"

	// WrappedDirname is the single folder some archives wrap their payload in.
	WrappedDirname = "Dolphin-x64"

	// DefaultFileMode is applied to every installed file.
	DefaultFileMode os.FileMode = 0o755
)

var errBadHTTPStatus = errors.New("bad HTTP status")

// Installer downloads a build archive and installs its contents over an
// existing installation directory, keeping files the archive does not ship.
type Installer struct {
	client    *http.Client
	extractor Extractor
	presenter *console.Presenter
}

// New returns an installer using the given HTTP client and archive extractor.
func New(client *http.Client, extractor Extractor, presenter *console.Presenter) *Installer {
	return &Installer{
		client:    client,
		extractor: extractor,
		presenter: presenter,
	}
}

// Install updates the installation in dir from the archive at downloadURL:
// 1) Download the archive next to the binary.
// 2) Unpack it into a scratch directory.
// 3) Move the unpacked entries into dir, replacing what they shadow.
// 4) Remove the archive and the scratch directory.
// Errors name the step that failed. Cleanup runs even on failure, so a
// broken attempt leaves no archive or scratch directory behind.
func (i *Installer) Install(ctx context.Context, dir, downloadURL string) error {
	archivePath := filepath.Join(dir, ArchiveFilename)
	extractDir := filepath.Join(dir, ExtractDirname)

	defer i.cleanup(ctx, archivePath, extractDir)

	if err := i.download(ctx, downloadURL, archivePath); err != nil {
		return fmt.Errorf("download archive: %w", err)
	}

	i.presenter.Println("Extracting...")

	if err := i.extract(ctx, archivePath, extractDir); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}

	i.presenter.Println("Updating...")

	root, err := resolveExtractionRoot(extractDir)
	if err != nil {
		return fmt.Errorf("install files: %w", err)
	}

	if err = i.applyTree(ctx, root, dir); err != nil {
		return fmt.Errorf("install files: %w", err)
	}

	return nil
}

// download saves the archive at downloadURL to archivePath,
// reporting progress as the body streams in.
func (i *Installer) download(ctx context.Context, downloadURL, archivePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return err
	}

	response, err := i.client.Do(req)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", downloadURL, response.Status, errBadHTTPStatus)
	}

	outputFile, err := os.Create(filepath.Clean(archivePath))
	if err != nil {
		return err
	}

	progress := newProgressWriter(i.presenter, response.ContentLength)

	_, err = io.Copy(io.MultiWriter(outputFile, progress), response.Body)
	closeErr := outputFile.Close()

	i.presenter.EndProgress()

	if err != nil {
		return err
	}

	if closeErr != nil {
		return closeErr
	}

	logger.InfoKV(ctx, "Downloaded archive", "path", archivePath, "bytes", progress.written)

	return nil
}

// extract unpacks the archive into extractDir, clearing leftovers from an
// earlier interrupted run first.
func (i *Installer) extract(ctx context.Context, archivePath, extractDir string) error {
	if _, err := os.Stat(extractDir); err == nil {
		if err = os.RemoveAll(extractDir); err != nil {
			return err
		}
	}

	return i.extractor.Extract(ctx, archivePath, extractDir)
}

// resolveExtractionRoot returns the directory holding the actual build
// files. Archives that wrap everything in a single Dolphin-x64 folder are
// unwrapped here, so both layouts install identically.
func resolveExtractionRoot(extractDir string) (string, error) {
	entries, err := os.ReadDir(extractDir)
	if err != nil {
		return "", err
	}

	if len(entries) == 1 && entries[0].IsDir() && entries[0].Name() == WrappedDirname {
		return filepath.Join(extractDir, WrappedDirname), nil
	}

	return extractDir, nil
}

// applyTree moves every top-level entry of root into dir.
// Directories replace their counterparts wholesale; files are swapped
// through go-update so a torn write cannot truncate the target.
func (i *Installer) applyTree(ctx context.Context, root, dir string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		sourcePath := filepath.Join(root, entry.Name())
		targetPath := filepath.Join(dir, entry.Name())

		logger.DebugKV(ctx, "Installing entry", "name", entry.Name())

		if entry.IsDir() {
			if _, err = os.Stat(targetPath); err == nil {
				if err = os.RemoveAll(targetPath); err != nil {
					return fmt.Errorf("remove previous %s: %w", entry.Name(), err)
				}
			}

			if err = os.Rename(sourcePath, targetPath); err != nil {
				return fmt.Errorf("move %s: %w", entry.Name(), err)
			}

			continue
		}

		if err = applyFile(sourcePath, targetPath); err != nil {
			return fmt.Errorf("replace %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// applyFile replaces targetPath with the contents of sourcePath using go-update.
func applyFile(sourcePath, targetPath string) error {
	data, err := os.ReadFile(filepath.Clean(sourcePath))
	if err != nil {
		return err
	}

	if _, err = os.Stat(targetPath); err != nil && os.IsNotExist(err) {
		var placeholder *os.File

		if placeholder, err = os.Create(filepath.Clean(targetPath)); err != nil {
			return err
		}

		_ = placeholder.Close()
	}

	options := &goupdate.Options{
		TargetPath: targetPath,
		TargetMode: DefaultFileMode,
	}

	dataReader := bytes.NewReader(data)
	if err = goupdate.Apply(dataReader, *options); err != nil {
		return err
	}

	oldFileName := targetPath + ".old"
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return nil
}

// cleanup removes the downloaded archive and the scratch directory.
// Failures are logged, not returned: the installation itself already
// succeeded or failed by the time this runs.
func (i *Installer) cleanup(ctx context.Context, archivePath, extractDir string) {
	if _, err := os.Stat(archivePath); err == nil {
		if err = os.Remove(archivePath); err != nil {
			logger.WarnKV(ctx, "Could not remove downloaded archive", "path", archivePath, "error", err)
		}
	}

	if _, err := os.Stat(extractDir); err == nil {
		if err = os.RemoveAll(extractDir); err != nil {
			logger.WarnKV(ctx, "Could not remove extraction directory", "path", extractDir, "error", err)
		}
	}
}
