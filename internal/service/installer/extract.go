package installer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/dolphin-updater/internal/logger"
)

// Extractor unpacks a build archive into a directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string) error
}

// SevenZip extracts archives by running an external 7-Zip flavored
// executable (7zr, 7za or the full 7z).
type SevenZip struct {
	// Path is the archiver executable. A bare name resolves through PATH.
	Path string
}

// Extract runs the archiver with overwrite enabled so repeated runs never
// block on a prompt. The tool's output is captured instead of streamed;
// on a non-zero exit it is folded into the returned error.
func (s *SevenZip) Extract(ctx context.Context, archivePath, destDir string) error {
	args := extractArgs(archivePath, destDir)

	logger.DebugKV(ctx, "Running archiver", "tool", s.Path, "args", args)

	cmd := exec.CommandContext(ctx, s.Path, args...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if trimmed := strings.TrimSpace(output.String()); trimmed != "" {
			return fmt.Errorf("run %s: %w: %s", s.Path, err, trimmed)
		}

		return fmt.Errorf("run %s: %w", s.Path, err)
	}

	return nil
}

// extractArgs builds the fixed command line understood by every 7-Zip flavor.
func extractArgs(archivePath, destDir string) []string {
	return []string{"x", archivePath, "-o" + destDir, "-aoa"}
}
