package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/dolphin-updater/internal/config"
	"github.com/oshokin/dolphin-updater/internal/service/updater"
)

const oldBuildScript = "#!/bin/sh\n# dolphin master build 5.0-21280\nexit 0\n"

// listingPage renders a minimal versions table whose newest release points
// at downloadURL.
func listingPage(latestVersion, downloadURL string) string {
	return fmt.Sprintf(`<html><body>
<table class="versions-list">
<tbody>
<tr class="infos">
  <td class="version"><a href="/download/dev/%[1]s">%[1]s</a></td>
  <td class="reldate">2 hours ago</td>
  <td class="description">DolphinQt: Polish debugger fonts (PR #13351 from admin)</td>
</tr>
<tr class="download"><td class="download-links"><a class="win" href="%[2]s">Windows x64</a></td></tr>
<tr class="infos">
  <td class="version"><a href="/download/dev/5.0-21280">5.0-21280</a></td>
  <td class="reldate">7 hours ago</td>
  <td class="description">Core: Fix savestate timing</td>
</tr>
<tr class="download"><td class="download-links"><a class="win" href="https://dl.example/old.7z">Windows x64</a></td></tr>
</tbody>
</table>
</body></html>`, latestVersion, downloadURL)
}

// writeFakeArchiver drops a shell script that stands in for 7zr: it
// ignores the archive and unpacks a fixed build tree into the -o target.
func writeFakeArchiver(t *testing.T, dir string) string {
	t.Helper()

	script := `#!/bin/sh
dest=""
for arg in "$@"; do
  case "$arg" in
    -o*) dest="${arg#-o}" ;;
  esac
done
test -n "$dest" || exit 2
mkdir -p "$dest/Dolphin-x64/Sys"
printf '#!/bin/sh\n# dolphin master build 5.0-21290\nexit 0\n' > "$dest/Dolphin-x64/Dolphin.exe"
chmod +x "$dest/Dolphin-x64/Dolphin.exe"
printf 'font data' > "$dest/Dolphin-x64/Sys/font.bin"
exit 0
`

	path := filepath.Join(dir, "fake7zr")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return path
}

// TestUpdater_Run_UpdatesOutdatedBuild wires a listing page, an archive
// download and a stand-in archiver together and verifies a full update run:
// detect, compare, download, extract, install, start.
func TestUpdater_Run_UpdatesOutdatedBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on shell script executables")
	}

	dir := t.TempDir()

	binaryPath := filepath.Join(dir, "Dolphin.exe")
	require.NoError(t, os.WriteFile(binaryPath, []byte(oldBuildScript), 0o755))

	var archiveDownloads atomic.Int32

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/download/list/master/1/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, listingPage("5.0-21290", ts.URL+"/builds/dolphin-5.0-21290.7z"))
	})
	mux.HandleFunc("/builds/dolphin-5.0-21290.7z", func(w http.ResponseWriter, _ *http.Request) {
		archiveDownloads.Add(1)
		_, _ = w.Write([]byte("archive payload"))
	})

	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{
		MainlineListURL: ts.URL + "/download/list/master/1/",
		ArchiverPath:    writeFakeArchiver(t, dir),
	}))

	options := &updater.Options{
		BinaryPath: binaryPath,
		ConfigPath: cfgPath,
		AssumeYes:  true,
	}

	require.NoError(t, updater.Run(context.Background(), options))

	// The binary was swapped for the downloaded build.
	contents, err := os.ReadFile(binaryPath)
	require.NoError(t, err)
	require.Contains(t, string(contents), "5.0-21290")

	// Shipped files landed next to it.
	fontData, err := os.ReadFile(filepath.Join(dir, "Sys", "font.bin"))
	require.NoError(t, err)
	require.Equal(t, "font data", string(fontData))

	// Scratch files and the running marker are gone.
	require.EqualValues(t, 1, archiveDownloads.Load())
	require.NoFileExists(t, filepath.Join(dir, "Dolphin.7z"))
	require.NoDirExists(t, filepath.Join(dir, "Extracted"))
	require.NoFileExists(t, filepath.Join(dir, updater.MarkerFilename))
}

// TestUpdater_Run_KeepsCurrentBuild serves a listing whose newest release
// matches the installed version and verifies nothing is downloaded.
func TestUpdater_Run_KeepsCurrentBuild(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on shell script executables")
	}

	dir := t.TempDir()

	currentScript := "#!/bin/sh\n# dolphin master build 5.0-21290\nexit 0\n"
	binaryPath := filepath.Join(dir, "Dolphin.exe")
	require.NoError(t, os.WriteFile(binaryPath, []byte(currentScript), 0o755))

	var archiveDownloads atomic.Int32

	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/download/list/master/1/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, listingPage("5.0-21290", ts.URL+"/builds/dolphin-5.0-21290.7z"))
	})
	mux.HandleFunc("/builds/", func(w http.ResponseWriter, _ *http.Request) {
		archiveDownloads.Add(1)
		_, _ = w.Write([]byte("archive payload"))
	})

	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{
		MainlineListURL: ts.URL + "/download/list/master/1/",
		ArchiverPath:    writeFakeArchiver(t, dir),
	}))

	require.NoError(t, updater.Run(context.Background(), &updater.Options{
		BinaryPath: binaryPath,
		ConfigPath: cfgPath,
		AssumeYes:  true,
	}))

	// The installed build is untouched and nothing was fetched or left behind.
	contents, err := os.ReadFile(binaryPath)
	require.NoError(t, err)
	require.Equal(t, currentScript, string(contents))

	require.Zero(t, archiveDownloads.Load())
	require.NoFileExists(t, filepath.Join(dir, "Dolphin.7z"))
	require.NoFileExists(t, filepath.Join(dir, updater.MarkerFilename))
}
