package curriculum

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phrazzld/kanjigate/internal/domain"
	"gopkg.in/yaml.v3"
)

// targetEntry accepts either a bare string or a full target mapping.
type targetEntry domain.Target

func (e *targetEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Text = node.Value
		return nil
	}
	var t domain.Target
	if err := node.Decode(&t); err != nil {
		return err
	}
	*e = targetEntry(t)
	return nil
}

type targetFile struct {
	Targets []targetEntry `yaml:"targets"`
}

// LoadTargets reads a target list from path.
//
// YAML and JSON files (.yaml, .yml, .json) hold either a list or a mapping
// with a "targets" list. Each entry is a plain string or a mapping with
// text, tier and known. Any other file is read as plain text, one entry per
// line, with "#" comments.
func LoadTargets(path string) ([]domain.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}

	var targets []domain.Target
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		targets, err = ParseTargets(data)
	default:
		targets, err = ParseTargetLines(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return targets, nil
}

// ParseTargets parses a YAML or JSON target document.
func ParseTargets(data []byte) ([]domain.Target, error) {
	var entries []targetEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var file targetFile
		if fileErr := yaml.Unmarshal(data, &file); fileErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedTargets, err)
		}
		entries = file.Targets
	}

	targets := make([]domain.Target, 0, len(entries))
	for i, e := range entries {
		t := domain.Target(e)
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			return nil, fmt.Errorf("%w: entry %d has no text", ErrMalformedTargets, i+1)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// ParseTargetLines reads one target per line. The tier is left for the
// caller to infer.
func ParseTargetLines(r io.Reader) ([]domain.Target, error) {
	var targets []domain.Target
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		targets = append(targets, domain.Target{Text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}
	return targets, nil
}
