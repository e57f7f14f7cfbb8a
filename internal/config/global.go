package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/rx/config.yml.
type GlobalConfig struct {
	NCBIEmail  string `yaml:"ncbi_email,omitempty"`
	NCBIAPIKey string `yaml:"ncbi_api_key,omitempty"`
	RepoPath   string `yaml:"repo_path,omitempty"` // Default repository when cwd is not inside one
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "rx"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/rx/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.RepoPath != "" {
		cfg.RepoPath = ExpandPath(cfg.RepoPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// LoadEnv loads a .env file from the working directory if present.
// Variables already set in the environment are not overridden.
func LoadEnv() {
	_ = godotenv.Load()
}

// Credentials returns the NCBI contact email and API key. The environment
// (including a loaded .env file) takes precedence over the global config.
func Credentials() (email, apiKey string) {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		cfg = &GlobalConfig{}
	}
	email, apiKey = cfg.NCBIEmail, cfg.NCBIAPIKey
	if v := os.Getenv("NCBI_EMAIL"); v != "" {
		email = v
	}
	if v := os.Getenv("NCBI_API_KEY"); v != "" {
		apiKey = v
	}
	return email, apiKey
}

// GetRepoPath returns the default repository path from global config.
func GetRepoPath() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.RepoPath
}
