// Package config handles repository and global configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config represents repository configuration stored in .retractions/config.json.
type Config struct {
	Term          string `json:"term"`               // esearch term selecting retracted publications
	StartYear     int    `json:"start_year"`         // First publication year searched
	EndYear       int    `json:"end_year,omitempty"` // Last year searched; 0 means the current year
	IntervalYears int    `json:"interval_years"`     // Years per esearch window
	BatchSize     int    `json:"batch_size"`         // Ids per efetch request
	Workers       int    `json:"workers"`            // Parallel extraction workers; 0 = GOMAXPROCS
	Strategy      string `json:"strategy"`           // Default reconcile strategy
}

const (
	RepoDir    = ".retractions"
	ConfigFile = "config.json"
	RunsDir    = "runs"
	UnionFile  = "union.jsonl"
	CacheDir   = "cache"
	DBFile     = "index.db"
	RunExt     = ".jsonl"
	IssuesExt  = ".issues.jsonl"
)

// Defaults collect every retracted publication
// since 1950, searched in five year windows and fetched in batches of 300.
const (
	DefaultTerm          = `"Retracted Publication"[Publication Type]`
	DefaultStartYear     = 1950
	DefaultIntervalYears = 5
	DefaultBatchSize     = 300
	DefaultStrategy      = "primary-wins"
)

// Default returns a configuration with every field at its default.
func Default() *Config {
	return &Config{
		Term:          DefaultTerm,
		StartYear:     DefaultStartYear,
		IntervalYears: DefaultIntervalYears,
		BatchSize:     DefaultBatchSize,
		Strategy:      DefaultStrategy,
	}
}

// ErrNotRepository is returned when no .retractions directory can be found.
var ErrNotRepository = errors.New("not in a retractions repository (no .retractions directory found)")

// RepoPath returns the path to the .retractions directory from a root path.
func RepoPath(root string) string {
	return filepath.Join(root, RepoDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, RepoDir, ConfigFile)
}

// RunsPath returns the directory holding run snapshots.
func RunsPath(root string) string {
	return filepath.Join(root, RepoDir, RunsDir)
}

// RunPath returns the snapshot path of a run label.
func RunPath(root, label string) string {
	return filepath.Join(RunsPath(root), label+RunExt)
}

// IssuesPath returns the path of the issue file written beside a run snapshot.
func IssuesPath(root, label string) string {
	return filepath.Join(RunsPath(root), label+IssuesExt)
}

// UnionPath returns the path to union.jsonl from a root path.
func UnionPath(root string) string {
	return filepath.Join(root, RepoDir, UnionFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, RepoDir, CacheDir)
}

// DBPath returns the path to the query index from a root path.
func DBPath(root string) string {
	return filepath.Join(root, RepoDir, CacheDir, DBFile)
}

// IsRepository checks if the given path contains a retractions repository.
func IsRepository(root string) bool {
	info, err := os.Stat(RepoPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a repository.
// Returns the repository root path or ErrNotRepository.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNotRepository
		}
		abs = parent
	}
}

// Init creates the repository layout and a default config at root.
func Init(root string) (*Config, error) {
	if IsRepository(root) {
		return nil, fmt.Errorf("repository already exists at %s", RepoPath(root))
	}
	for _, dir := range []string{RunsPath(root), CachePath(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(CachePath(root), ".gitignore"), []byte("*\n"), 0644); err != nil {
		return nil, fmt.Errorf("writing cache .gitignore: %w", err)
	}

	cfg := Default()
	if err := cfg.Save(root); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads configuration from the repository at the given root. Fields
// missing from the file take their defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Term) == "" {
		return fmt.Errorf("invalid config: term is empty")
	}
	if c.StartYear < 1000 || c.StartYear > 9998 {
		return fmt.Errorf("invalid config: start_year %d", c.StartYear)
	}
	if c.EndYear != 0 && c.EndYear < c.StartYear {
		return fmt.Errorf("invalid config: end_year %d is before start_year %d", c.EndYear, c.StartYear)
	}
	if c.IntervalYears < 1 {
		return fmt.Errorf("invalid config: interval_years must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("invalid config: batch_size must be at least 1")
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid config: workers must not be negative")
	}
	return nil
}

// SearchEndYear returns EndYear, or the year of now when it is unset.
func (c *Config) SearchEndYear(now time.Time) int {
	if c.EndYear != 0 {
		return c.EndYear
	}
	return now.Year()
}

type configField struct {
	get func(*Config) string
	set func(*Config, string) error
}

// configFields maps config keys to accessors for get and set.
var configFields = map[string]configField{
	"term": {
		get: func(c *Config) string { return c.Term },
		set: func(c *Config, v string) error { c.Term = v; return nil },
	},
	"start_year":     intField(func(c *Config) *int { return &c.StartYear }),
	"end_year":       intField(func(c *Config) *int { return &c.EndYear }),
	"interval_years": intField(func(c *Config) *int { return &c.IntervalYears }),
	"batch_size":     intField(func(c *Config) *int { return &c.BatchSize }),
	"workers":        intField(func(c *Config) *int { return &c.Workers }),
	"strategy": {
		get: func(c *Config) string { return c.Strategy },
		set: func(c *Config, v string) error { c.Strategy = v; return nil },
	},
}

func intField(ptr func(*Config) *int) configField {
	return configField{
		get: func(c *Config) string { return strconv.Itoa(*ptr(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("not an integer: %q", v)
			}
			*ptr(c) = n
			return nil
		},
	}
}

// Keys lists the settable config keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(configFields))
	for k := range configFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of a config key.
func (c *Config) Get(key string) (string, error) {
	f, ok := configFields[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %s (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	return f.get(c), nil
}

// Set parses and assigns a config key, then validates the result. The
// config is left unchanged on error.
func (c *Config) Set(key, value string) error {
	f, ok := configFields[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := f.set(&next, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ValidateLabel checks that a run label can name a snapshot file and be
// joined into a union label.
func ValidateLabel(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("run label is empty")
	case strings.ContainsAny(label, `/\+`):
		return fmt.Errorf("invalid run label %q: must not contain '/', '\\' or '+'", label)
	case strings.HasPrefix(label, "."):
		return fmt.Errorf("invalid run label %q: must not start with '.'", label)
	case strings.HasSuffix(label, ".issues"):
		return fmt.Errorf("invalid run label %q: reserved suffix", label)
	}
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
