package build

import "fmt"

// Variant identifies which distribution line published the installed binary.
type Variant int

const (
	// VariantMainline is the official build line from dolphin-emu.org.
	VariantMainline Variant = iota
	// VariantIshiiruka is the community fork published through a shared folder.
	VariantIshiiruka
)

// String returns the human-readable variant name.
func (v Variant) String() string {
	switch v {
	case VariantMainline:
		return "mainline"
	case VariantIshiiruka:
		return "ishiiruka"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// Release is one published build parsed from a listing page.
// Version and DownloadURL always come from the same row, so the URL
// cannot belong to a different release than the version does.
type Release struct {
	// Version is the opaque version identifier shown on the listing.
	Version string
	// Date is the release date text, empty for sources without one.
	Date string
	// Description is the release note text, empty for sources without one.
	Description string
	// DownloadURL is the Windows archive link, empty when the row has none.
	DownloadURL string
}

// Status describes one installed binary against the latest published release.
// It is created once per run by a version source and never mutated after.
type Status struct {
	// BinaryPath is the absolute path of the installed binary.
	BinaryPath string
	// Variant is the distribution line detected from the binary.
	Variant Variant
	// Installed is the version identifier embedded in the binary.
	Installed string
	// Latest is the newest release published for this variant.
	Latest Release
}

// Outdated reports whether the installed build differs from the latest one.
// Versions are opaque strings: any character difference counts as outdated,
// there is deliberately no semantic version ordering here.
func (s *Status) Outdated() bool {
	return s.Installed != s.Latest.Version
}
