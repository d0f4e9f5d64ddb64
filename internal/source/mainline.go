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

// mainlineInstalledPattern matches the version marker embedded in
// mainline binaries, e.g. "5.0-21290".
var mainlineInstalledPattern = regexp.MustCompile(`[45]\.0-[0-9]+`)

// Mainline reads the development builds table on dolphin-emu.org.
type Mainline struct {
	status    *build.Status
	releases  []build.Release
	presenter *console.Presenter
}

// newMainline fetches the versions table once, parses it into release
// rows and scans the installed binary for its version marker.
func newMainline(
	ctx context.Context,
	client *http.Client,
	cfg *config.Config,
	p *console.Presenter,
	binaryPath string,
) (*Mainline, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	document, err := fetchDocument(fetchCtx, client, cfg.MainlineListURL)
	if err != nil {
		return nil, fmt.Errorf("fetch versions list: %w", err)
	}

	releases, err := parseMainlineReleases(document)
	if err != nil {
		return nil, fmt.Errorf("parse versions list: %w", err)
	}

	latest, err := latestRelease(releases)
	if err != nil {
		return nil, err
	}

	installed, err := scanBinary(binaryPath, mainlineInstalledPattern, 0)
	if err != nil {
		return nil, fmt.Errorf("installed version: %w", err)
	}

	logger.DebugKV(ctx, "Parsed mainline listing",
		"rows", len(releases), "latest", latest.Version, "installed", installed)

	return &Mainline{
		status: &build.Status{
			BinaryPath: binaryPath,
			Variant:    build.VariantMainline,
			Installed:  installed,
			Latest:     latest,
		},
		releases:  releases,
		presenter: p,
	}, nil
}

// Variant implements Source.
func (m *Mainline) Variant() build.Variant {
	return build.VariantMainline
}

// Status implements Source.
func (m *Mainline) Status() *build.Status {
	return m.status
}

// WriteListing renders the builds table, one row per release, with the
// installed row in cyan and the latest row in green. When both coincide
// only the installed highlight shows.
func (m *Mainline) WriteListing() {
	m.presenter.Println("Current master builds:")

	for _, release := range m.releases {
		line := fmt.Sprintf("%-10s | %-20s | %s",
			release.Version, release.Date, truncateDescription(release.Description))

		switch release.Version {
		case m.status.Installed:
			m.presenter.Printf("\t %s\n", m.presenter.Installed(line))
		case m.status.Latest.Version:
			m.presenter.Printf("\t %s\n", m.presenter.Latest(line))
		default:
			m.presenter.Printf("\t %s\n", line)
		}
	}
}

// parseMainlineReleases turns the versions table into ordered release rows.
// Each "infos" row is paired with the adjacent "download" row, so the
// version and the download link always describe the same release.
func parseMainlineReleases(document *goquery.Document) ([]build.Release, error) {
	table := document.Find("table.versions-list").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("versions table: %w", ErrParse)
	}

	var releases []build.Release

	table.Find("tr.infos").Each(func(_ int, row *goquery.Selection) {
		release := build.Release{
			Version:     strings.TrimSpace(row.Find("td.version a").First().Text()),
			Date:        strings.TrimSpace(row.Find("td.reldate").First().Text()),
			Description: strings.TrimSpace(row.Find("td.description").First().Text()),
		}

		if release.Version == "" {
			return
		}

		download := row.NextFiltered("tr.download")
		if download.Length() > 0 {
			if href, ok := download.Find("td.download-links a.win").First().Attr("href"); ok {
				release.DownloadURL = strings.TrimSpace(href)
			}
		}

		releases = append(releases, release)
	})

	if len(releases) == 0 {
		return nil, fmt.Errorf("versions table has no release rows: %w", ErrParse)
	}

	return releases, nil
}

// truncateDescription cuts the release note at the first " (" so the
// pull-request reference does not widen the table.
func truncateDescription(s string) string {
	if i := strings.Index(s, " ("); i >= 0 {
		return s[:i]
	}

	return s
}
