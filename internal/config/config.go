package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the updater.
// Every field has a built-in default, so the tool works without a settings file.
type Config struct {
	// MainlineListURL is the page listing mainline development builds.
	MainlineListURL string `yaml:"mainline_list_url"`
	// GalleryFolderURL is the shared folder publishing Ishiiruka builds.
	GalleryFolderURL string `yaml:"gallery_folder_url"`
	// ArchiverPath is the 7-Zip style executable used to unpack downloads.
	// A bare name is resolved through PATH.
	ArchiverPath string `yaml:"archiver_path"`
	// Timeout bounds each listing page fetch. Downloads are not bounded,
	// they run until finished or the process is interrupted.
	Timeout time.Duration `yaml:"timeout"`
	// GalleryRetries is how many times the gallery page is refetched when
	// it renders without its file list.
	GalleryRetries int `yaml:"gallery_retries"`
	// LogLevel is the minimum level for log output (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for updater settings.
	DefaultConfigFilename = "dolphin-updater-settings.yaml"

	// DefaultMainlineListURL is where mainline development builds are published.
	DefaultMainlineListURL = "https://dolphin-emu.org/download/list/master/1/?nocr=true"

	// DefaultGalleryFolderURL is the shared folder with Ishiiruka builds.
	DefaultGalleryFolderURL = "https://www.dropbox.com/sh/7f78x2czhknfrmr/AADhXhA0b8EIcCyejITS697Ca?dl=0"

	// DefaultTimeout is the default duration for listing page fetches.
	DefaultTimeout = 30 * time.Second

	// DefaultGalleryRetries is the default bound for gallery refetches.
	DefaultGalleryRetries = 3

	// DefaultLogLevel is used when the settings file does not set one.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// baseArchiverName is the archiver executable; platform helpers append
	// the extension when needed.
	baseArchiverName = "7zr"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRetriesNegative is returned when the gallery retry bound is negative.
	errRetriesNegative = errors.New("gallery retries must not be negative")
)

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	return &Config{
		MainlineListURL:  DefaultMainlineListURL,
		GalleryFolderURL: DefaultGalleryFolderURL,
		ArchiverPath:     DefaultArchiverPath(),
		Timeout:          DefaultTimeout,
		GalleryRetries:   DefaultGalleryRetries,
		LogLevel:         DefaultLogLevel,
	}
}

// DefaultArchiverPath returns the archiver executable name for the current platform.
func DefaultArchiverPath() string {
	return baseArchiverName + getExecutableExtension()
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: built-in defaults are returned so the
// updater works with zero setup.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for everything left unset.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.MainlineListURL == "" {
		cfg.MainlineListURL = DefaultMainlineListURL
	}

	if _, err := url.ParseRequestURI(cfg.MainlineListURL); err != nil {
		return fmt.Errorf("invalid mainline list URL: %w", err)
	}

	if cfg.GalleryFolderURL == "" {
		cfg.GalleryFolderURL = DefaultGalleryFolderURL
	}

	if _, err := url.ParseRequestURI(cfg.GalleryFolderURL); err != nil {
		return fmt.Errorf("invalid gallery folder URL: %w", err)
	}

	if cfg.ArchiverPath == "" {
		cfg.ArchiverPath = DefaultArchiverPath()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.GalleryRetries < 0 {
		return errRetriesNegative
	}

	if cfg.GalleryRetries == 0 {
		cfg.GalleryRetries = DefaultGalleryRetries
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

// getExecutableExtension returns ".exe" on Windows and "" elsewhere.
func getExecutableExtension() string {
	if strings.Contains(strings.ToLower(runtime.GOOS), "windows") {
		return ".exe"
	}

	return ""
}
