// Package build contains core domain types for the update decision.
//
// It defines Variant (which distribution line published a binary),
// Release (one parsed listing row) and Status (installed build versus
// latest release), with the outdatedness rule in one place.
package build
