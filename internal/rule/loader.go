package rule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"notification-rules/internal/logger"
)

// RulesLoader handles loading rules from the filesystem
type RulesLoader struct {
	logger *logger.Logger
}

// NewRulesLoader creates a new rules loader
func NewRulesLoader(log *logger.Logger) *RulesLoader {
	return &RulesLoader{
		logger: log,
	}
}

// LoadFromDirectory loads all rules from a directory and its subdirectories.
// Files are read in lexical order; .json, .yaml and .yml files each hold a list of rules.
func (l *RulesLoader) LoadFromDirectory(path string) ([]Rule, error) {
	var rules []Rule

	err := filepath.Walk(path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !isRuleFile(path) {
			return nil
		}

		ruleSet, err := l.LoadFile(path)
		if err != nil {
			return err
		}

		rules = append(rules, ruleSet...)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	l.logger.Info("rules loaded successfully",
		"path", path,
		"totalRules", len(rules))

	return rules, nil
}

// LoadFile loads the list of rules held in a single file
func (l *RulesLoader) LoadFile(path string) ([]Rule, error) {
	l.logger.Debug("loading rule file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Error("failed to read rule file",
			"path", path,
			"error", err)
		return nil, err
	}

	var ruleSet []Rule
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &ruleSet)
	default:
		err = json.Unmarshal(data, &ruleSet)
	}
	if err != nil {
		l.logger.Error("failed to parse rule file",
			"path", path,
			"error", err)
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Debug("successfully loaded rules",
		"path", path,
		"count", len(ruleSet))

	return ruleSet, nil
}

func isRuleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
