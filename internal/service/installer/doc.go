// Package installer downloads a build archive and installs it over an
// existing Dolphin installation. Extraction is delegated to an external
// 7-Zip flavored tool behind the Extractor interface.
package installer
