package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/dolphin-updater/internal/domain/build"
)

// ishiirukaMarker is the byte sequence embedded in community fork binaries.
var ishiirukaMarker = []byte("Ishiiruka")

// DetectVariant reads the installed binary and decides which distribution
// line published it. A binary without the fork marker is mainline.
func DetectVariant(path string) (build.Variant, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return build.VariantMainline, fmt.Errorf("%s: %w", path, ErrNotFound)
		}

		return build.VariantMainline, fmt.Errorf("read binary: %w", err)
	}

	if bytes.Contains(contents, ishiirukaMarker) {
		return build.VariantIshiiruka, nil
	}

	return build.VariantMainline, nil
}
