// Package source resolves which distribution line published the installed
// binary and what the latest available build is.
//
// Two sources exist and no more are expected: Mainline scrapes the
// development builds table on dolphin-emu.org, Ishiiruka scrapes the
// community fork's shared-folder gallery. Both fetch their listing once
// at construction and derive the latest version and its download URL from
// the same parsed row, so the two can never describe different releases.
// The HTML structures and the binary version markers are external
// contracts owned by the sites and the binaries; expect breakage when
// they change.
package source
