//file: internal/rule/loader_test.go
package rule

import (
	"os"
	"path/filepath"
	"testing"

	"notification-rules/config"
	"notification-rules/internal/logger"
	"notification-rules/internal/notification"
)

func setupTestLoader(t *testing.T) (*RulesLoader, string) {
	t.Helper()

	log, err := logger.NewLogger(&config.LogConfig{
		Level:      "debug",
		OutputPath: "stdout",
		Encoding:   "console",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	return NewRulesLoader(log), t.TempDir()
}

func createTestFile(t *testing.T, dir, filename, content string) {
	t.Helper()

	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
}

func TestLoadSingleRule(t *testing.T) {
	loader, tmpDir := setupTestLoader(t)

	createTestFile(t, tmpDir, "motion.json", `[
		{
			"name": "R1",
			"trigger": "motion",
			"conditions": [{"field": "type", "operator": "EQUAL_TO", "operand": "motion"}],
			"actions": ["LOG"]
		}
	]`)

	rules, err := loader.LoadFromDirectory(tmpDir)
	if err != nil {
		t.Fatalf("LoadFromDirectory() error = %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	rule := rules[0]
	if rule.Trigger != notification.TypeMotion {
		t.Errorf("trigger = %q, want motion", rule.Trigger)
	}
	if len(rule.Conditions) != 1 || rule.Conditions[0] != typeEquals(notification.TypeMotion, ModeAll) {
		t.Errorf("unexpected conditions: %+v", rule.Conditions)
	}
	if len(rule.Actions) != 1 || rule.Actions[0].Type != ActionLog {
		t.Errorf("unexpected actions: %+v", rule.Actions)
	}
}

func TestLoadMixedFormats(t *testing.T) {
	loader, tmpDir := setupTestLoader(t)

	createTestFile(t, tmpDir, "a.json", `[{"name": "json-rule", "trigger": "ding", "actions": ["LOG"]}]`)
	createTestFile(t, tmpDir, "b.yaml", `
- name: yaml-rule
  trigger: motion
  conditions:
    - field: sessionId
      operator: EQUAL_TO
      operand: session001
      mode: ANY
  actions:
    - type: PUBLISH
      topic: alerts/${sessionId}
`)
	createTestFile(t, tmpDir, "nested/c.yml", `
- name: yml-rule
  trigger: ding
  actions: [LOG]
`)
	createTestFile(t, tmpDir, "README.md", "not a rule file")

	rules, err := loader.LoadFromDirectory(tmpDir)
	if err != nil {
		t.Fatalf("LoadFromDirectory() error = %v", err)
	}

	wantNames := []string{"json-rule", "yaml-rule", "yml-rule"}
	if len(rules) != len(wantNames) {
		t.Fatalf("expected %d rules, got %d", len(wantNames), len(rules))
	}
	for i, name := range wantNames {
		if rules[i].Name != name {
			t.Errorf("rules[%d].Name = %q, want %q", i, rules[i].Name, name)
		}
	}

	yamlRule := rules[1]
	if yamlRule.Conditions[0].Mode != ModeAny {
		t.Errorf("mode = %s, want ANY", yamlRule.Conditions[0].Mode)
	}
	if yamlRule.Actions[0].Topic != "alerts/${sessionId}" {
		t.Errorf("topic = %q", yamlRule.Actions[0].Topic)
	}
}

func TestLoadInvalidFiles(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"malformed json", "bad.json", `[{"trigger": "motion"`},
		{"unknown operator", "bad.json", `[{"trigger": "motion", "conditions": [{"field": "type", "operator": "LIKE", "operand": "x"}]}]`},
		{"unknown field", "bad.yaml", "- trigger: motion\n  conditions:\n    - field: color\n      operator: EQUAL_TO\n      operand: red\n"},
		{"unknown action", "bad.yml", "- trigger: ding\n  actions: [EMAIL]\n"},
		{"not a list", "bad.json", `{"trigger": "motion"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, tmpDir := setupTestLoader(t)
			createTestFile(t, tmpDir, tt.filename, tt.content)

			if _, err := loader.LoadFromDirectory(tmpDir); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	loader, tmpDir := setupTestLoader(t)

	if _, err := loader.LoadFromDirectory(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoadEmptyDirectory(t *testing.T) {
	loader, tmpDir := setupTestLoader(t)

	rules, err := loader.LoadFromDirectory(tmpDir)
	if err != nil {
		t.Fatalf("LoadFromDirectory() error = %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("expected no rules, got %d", len(rules))
	}
}
