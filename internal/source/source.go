package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/oshokin/dolphin-updater/internal/config"
	"github.com/oshokin/dolphin-updater/internal/console"
	"github.com/oshokin/dolphin-updater/internal/domain/build"
	"github.com/oshokin/dolphin-updater/internal/logger"
)

var (
	// ErrNetwork marks unreachable hosts, bad HTTP statuses and
	// exhausted gallery retries.
	ErrNetwork = errors.New("network failure")
	// ErrParse marks listing pages without the expected structure.
	ErrParse = errors.New("unexpected page structure")
	// ErrNotFound marks missing files, version markers or releases.
	ErrNotFound = errors.New("not found")
)

// Source knows where one distribution line publishes its builds.
// Constructing a source fetches the listing and scans the installed
// binary eagerly, so a non-nil source always carries a complete Status.
type Source interface {
	// Variant names the distribution line this source covers.
	Variant() build.Variant
	// Status returns the installed build compared against the latest release.
	Status() *build.Status
	// WriteListing renders the available versions for the operator,
	// highlighting the installed and the latest one.
	WriteListing()
}

// New detects the variant of the binary at binaryPath and constructs the
// matching source. The listing fetch happens here, before this returns.
func New(
	ctx context.Context,
	client *http.Client,
	cfg *config.Config,
	p *console.Presenter,
	binaryPath string,
) (Source, error) {
	variant, err := DetectVariant(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("detect variant: %w", err)
	}

	logger.InfoKV(ctx, "Detected binary variant", "variant", variant.String())

	if variant == build.VariantIshiiruka {
		return newIshiiruka(ctx, client, cfg, p, binaryPath)
	}

	return newMainline(ctx, client, cfg, p, binaryPath)
}

// fetchDocument retrieves a listing page and parses it into a document tree.
func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", pageURL, err)
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", pageURL, err, ErrNetwork)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", pageURL, response.Status, ErrNetwork)
	}

	document, err := goquery.NewDocumentFromReader(response.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	return document, nil
}

// scanBinary extracts a version identifier from the raw bytes of the
// installed binary. group selects the submatch to return, 0 for the
// whole match.
func scanBinary(path string, pattern *regexp.Regexp, group int) (string, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read binary: %w", err)
	}

	match := pattern.FindSubmatch(contents)
	if match == nil || len(match) <= group {
		return "", fmt.Errorf("version marker in %s: %w", path, ErrNotFound)
	}

	return string(match[group]), nil
}

// latestRelease picks the newest release carrying a Windows download.
// Listings are newest-first, so the first such row wins.
func latestRelease(releases []build.Release) (build.Release, error) {
	for _, release := range releases {
		if release.DownloadURL != "" {
			return release, nil
		}
	}

	return build.Release{}, fmt.Errorf("release with a windows download: %w", ErrNotFound)
}
