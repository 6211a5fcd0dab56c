package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings is the top-level configuration for shipwright.
type Settings struct {
	Provider   ProviderConfig    `yaml:"provider"`
	Repository RepositoryConfig  `yaml:"repository"`
	Workflows  map[string]string `yaml:"workflows"` // action -> workflow file name
	Polling    PollingConfig     `yaml:"polling"`
}

// ProviderConfig describes the Git hosting provider to publish through.
type ProviderConfig struct {
	Type  string `yaml:"type"`  // "github"
	Token string `yaml:"token"` // Inline, ${ENV_VAR}, or file path
}

// RepositoryConfig identifies the target repository.
type RepositoryConfig struct {
	Owner  string `yaml:"owner"`
	Name   string `yaml:"name"`
	Branch string `yaml:"branch"` // Empty means the default branch
}

// PollingConfig tunes the run tracker.
type PollingConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	TimeoutSeconds  int `yaml:"timeout_seconds"`
}

// Interval returns the poll interval, defaulting to 10 seconds.
func (p PollingConfig) Interval() time.Duration {
	if p.IntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.IntervalSeconds) * time.Second
}

// CallTimeout returns the per-call network timeout, defaulting to 30 seconds.
func (p PollingConfig) CallTimeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// WorkflowFor resolves the workflow file configured for an action.
func (s *Settings) WorkflowFor(action Action) (string, error) {
	if file, ok := s.Workflows[action.String()]; ok && file != "" {
		return file, nil
	}
	return "", NewError(ErrNotFound,
		fmt.Sprintf("no workflow configured for action %q", action))
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// NewSettings reads and parses a configuration file, expanding environment
// variables and resolving token file paths.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var settings Settings
	if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	settings.Provider.Token = resolveToken(settings.Provider.Token)

	if validateErr := settings.validate(); validateErr != nil {
		return nil, validateErr
	}

	return &settings, nil
}

// FindConfigFile searches for a configuration file in standard locations.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{".", ".config", "configs"}
	if homeDir != "" {
		locations = append(locations, homeDir, filepath.Join(homeDir, ".config"))
	}

	patterns := []string{
		".shipwright.yaml",
		".shipwright.yml",
		"shipwright.yaml",
		"shipwright.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from it.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required configuration values.
func (s *Settings) validate() error {
	if s.Provider.Type == "" {
		return errors.New("provider.type is required")
	}
	if s.Provider.Token == "" {
		return errors.New(
			"provider.token is required (set inline, via ${ENV_VAR}, or as file path)")
	}
	if s.Repository.Owner == "" || s.Repository.Name == "" {
		return errors.New("repository.owner and repository.name are required")
	}

	for action := range s.Workflows {
		if _, err := ParseAction(action); err != nil {
			return fmt.Errorf("workflows: %w", err)
		}
	}

	return nil
}
