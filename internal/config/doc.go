// Package config defines updater settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the listing URLs for both distribution lines, the
// archiver path and fetch tuning. Every field has a built-in default so the
// updater runs without a settings file at all.
package config
