package manifest

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed default.yaml
var defaultPipeline []byte

// Default returns the built-in pipeline for Papercraft releases.
func Default() (*Pipeline, error) {
	return Parse(defaultPipeline, "default.yaml")
}

// DefaultYAML returns a copy of the built-in pipeline source.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultPipeline...)
}

// ParseFile reads, validates and parses the pipeline manifest at path.
func ParseFile(path string) (*Pipeline, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse validates data and decodes it into a Pipeline. name is used in
// errors.
func Parse(data []byte, name string) (*Pipeline, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating pipeline %s: %w", name, err)
	}
	if !result.Valid {
		return nil, &InvalidError{Name: name, Issues: result.Issues}
	}
	return result.Pipeline, nil
}

// InvalidError reports the issues that make a pipeline manifest unusable.
type InvalidError struct {
	Name   string
	Issues []ValidationIssue
}

func (e *InvalidError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline %s is invalid:", e.Name)
	for _, issue := range e.Issues {
		fmt.Fprintf(&b, "\n  %s: %s", issue.Path, issue.Message)
	}
	return b.String()
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
