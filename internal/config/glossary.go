package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadGlossary reads a YAML mapping of source phrases to preferred
// translations:
//
//	Inspector: 警部
//	Baker Street: ベーカー街
func LoadGlossary(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("read glossary: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse glossary %s: %w", path, err)
	}

	glossary := make(map[string]string, len(raw))
	for source, target := range raw {
		source = strings.TrimSpace(source)
		target = strings.TrimSpace(target)
		if source == "" || target == "" {
			continue
		}
		glossary[source] = target
	}
	return glossary, nil
}
