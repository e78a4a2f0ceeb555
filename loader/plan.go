package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan describes one batch load: setup DDL, the statements to register in
// order and the parameter sets to queue on each.
type Plan struct {
	Setup      []string        `yaml:"setup"`
	Statements []StatementPlan `yaml:"statements"`
	// ExecuteBeforeClose runs every pending batch before teardown, so a
	// failure aborts the load instead of only being logged.
	ExecuteBeforeClose bool `yaml:"execute_before_close"`
	// Commit flushes pending batches while closing. Defaults to true.
	Commit bool `yaml:"commit"`
}

// StatementPlan is one statement and its queued work. Rows are parameter
// sets for a generic statement; Keys make it an integer-keyed statement.
type StatementPlan struct {
	Name string  `yaml:"name"`
	SQL  string  `yaml:"sql"`
	Rows [][]any `yaml:"rows"`
	Keys []int64 `yaml:"keys"`
}

// IntKeyed reports whether the statement binds a single integer key.
func (s StatementPlan) IntKeyed() bool {
	return len(s.Keys) > 0
}

func (s StatementPlan) label(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("statement %d", i)
}

// ParsePlan decodes and validates a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	plan := &Plan{Commit: true}
	if err := yaml.Unmarshal(data, plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	for i, s := range plan.Statements {
		if s.SQL == "" {
			return nil, fmt.Errorf("%s: sql is required", s.label(i))
		}
		if len(s.Rows) > 0 && len(s.Keys) > 0 {
			return nil, fmt.Errorf("%s: rows and keys are mutually exclusive", s.label(i))
		}
	}
	return plan, nil
}

// LoadPlan reads a plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan %s: %w", path, err)
	}
	return ParsePlan(data)
}
