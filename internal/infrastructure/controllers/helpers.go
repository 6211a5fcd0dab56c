package controllers

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fabriko/shipwright/internal/domain/entities"
)

// loadSettings resolves the configuration file from the --config flag or
// the standard search locations.
func loadSettings(cmd *cobra.Command) (*entities.Settings, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		var err error
		configPath, err = entities.FindConfigFile()
		if err != nil {
			return nil, fmt.Errorf(
				"no config file found: %w\nSpecify one with --config or create shipwright.yaml", err)
		}
	}

	logger.Infof("Using config file: %s", configPath)
	return entities.NewSettings(configPath)
}

// readFilesFromDir collects the generated template files under dir as
// repo-relative file changes.
func readFilesFromDir(dir string) ([]entities.FileChange, error) {
	var files []entities.FileChange

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("failed to read %q: %w", path, readErr)
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}

		files = append(files, entities.FileChange{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// parseInputs converts repeated --input key=value flags into typed inputs.
func parseInputs(raw []string) (entities.WorkflowInputs, error) {
	inputs := make(entities.WorkflowInputs, len(raw))
	for _, pair := range raw {
		key, val, err := entities.ParseInput(pair)
		if err != nil {
			return nil, err
		}
		inputs[key] = val
	}
	return inputs, nil
}
