package source

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/oshokin/dolphin-updater/internal/config"
	"github.com/oshokin/dolphin-updater/internal/console"
	"github.com/oshokin/dolphin-updater/internal/domain/build"
	"github.com/oshokin/dolphin-updater/internal/logger"
)

var (
	// ishiirukaFilenamePattern matches gallery filenames like
	// "Ishiiruka.1120(ab12cd3).x64.7z"; the capture is the build number.
	ishiirukaFilenamePattern = regexp.MustCompile(`([0-9]+)\([^)]+\)\.x64\.7z`)

	// ishiirukaInstalledPattern matches the version marker embedded in
	// fork binaries: the build number followed by NUL padding and "master".
	ishiirukaInstalledPattern = regexp.MustCompile(`([0-9]+)\([^)]+\)\x00+master`)
)

// Ishiiruka reads the community fork's shared-folder gallery.
type Ishiiruka struct {
	status    *build.Status
	releases  []build.Release
	presenter *console.Presenter
}

// newIshiiruka fetches the gallery page, retrying when it renders without
// its file list, and scans the installed binary for its build number.
func newIshiiruka(
	ctx context.Context,
	client *http.Client,
	cfg *config.Config,
	p *console.Presenter,
	binaryPath string,
) (*Ishiiruka, error) {
	releases, err := fetchGalleryReleases(ctx, client, cfg, p)
	if err != nil {
		return nil, err
	}

	latest, err := latestRelease(releases)
	if err != nil {
		return nil, err
	}

	installed, err := scanBinary(binaryPath, ishiirukaInstalledPattern, 1)
	if err != nil {
		return nil, fmt.Errorf("installed version: %w", err)
	}

	logger.DebugKV(ctx, "Parsed gallery listing",
		"files", len(releases), "latest", latest.Version, "installed", installed)

	return &Ishiiruka{
		status: &build.Status{
			BinaryPath: binaryPath,
			Variant:    build.VariantIshiiruka,
			Installed:  installed,
			Latest:     latest,
		},
		releases:  releases,
		presenter: p,
	}, nil
}

// Variant implements Source.
func (s *Ishiiruka) Variant() build.Variant {
	return build.VariantIshiiruka
}

// Status implements Source.
func (s *Ishiiruka) Status() *build.Status {
	return s.status
}

// WriteListing renders the single latest-build line. The gallery exposes
// no usable history, so there is no table to show.
func (s *Ishiiruka) WriteListing() {
	s.presenter.Printf("Latest build:\t\t\t %s\n", s.presenter.Latest(s.status.Latest.Version))
}

// fetchGalleryReleases retrieves the shared folder page and parses its
// file gallery. The hosting site sometimes serves the page without the
// gallery container; that specific failure is retried up to the
// configured bound, anything else fails immediately.
func fetchGalleryReleases(
	ctx context.Context,
	client *http.Client,
	cfg *config.Config,
	p *console.Presenter,
) ([]build.Release, error) {
	for attempt := 1; attempt <= cfg.GalleryRetries; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		document, err := fetchDocument(fetchCtx, client, cfg.GalleryFolderURL)

		cancel()

		if err != nil {
			return nil, fmt.Errorf("fetch gallery: %w", err)
		}

		releases, galleryPresent := parseGalleryReleases(document)
		if galleryPresent {
			if len(releases) == 0 {
				return nil, fmt.Errorf("build archives in gallery: %w", ErrNotFound)
			}

			return releases, nil
		}

		logger.WarnKV(ctx, "Gallery page came back without its file list",
			"attempt", attempt, "retries", cfg.GalleryRetries)

		if attempt < cfg.GalleryRetries {
			p.Println("Failed fetching DropBox links. Trying again ...")
		}
	}

	return nil, fmt.Errorf("gallery missing after %d attempts: %w", cfg.GalleryRetries, ErrNetwork)
}

// parseGalleryReleases scans gallery file links for build archives.
// The second result reports whether the gallery container was present at
// all, distinguishing a half-rendered page from an empty folder.
func parseGalleryReleases(document *goquery.Document) ([]build.Release, bool) {
	gallery := document.Find("div.gallery-view-section").First()
	if gallery.Length() == 0 {
		return nil, false
	}

	var releases []build.Release

	gallery.Find("a.file-link.filename-link").Each(func(_ int, anchor *goquery.Selection) {
		name := strings.TrimSpace(anchor.Text())

		match := ishiirukaFilenamePattern.FindStringSubmatch(name)
		if match == nil {
			return
		}

		href, ok := anchor.Attr("href")
		if !ok || href == "" {
			return
		}

		releases = append(releases, build.Release{
			Version:     match[1],
			Description: name,
			// The share link ends with dl=0; rewriting the trailing
			// character to 1 turns it into a direct download.
			DownloadURL: href[:len(href)-1] + "1",
		})
	})

	return releases, true
}
