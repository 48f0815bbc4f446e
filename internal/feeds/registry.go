package feeds

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var registryYAML []byte

// Source is one syndication feed in the registry
type Source struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

type registryFile struct {
	Feeds []Source `yaml:"feeds"`
}

// DefaultSources returns the compiled-in feed registry.
func DefaultSources() []Source {
	sources, err := ParseRegistry(registryYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded feed registry is invalid: %v", err))
	}
	return sources
}

// ParseRegistry decodes a YAML registry document and checks every entry.
func ParseRegistry(data []byte) ([]Source, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse feed registry: %w", err)
	}
	if len(file.Feeds) == 0 {
		return nil, fmt.Errorf("feed registry has no feeds")
	}

	seen := make(map[string]bool, len(file.Feeds))
	for i, src := range file.Feeds {
		src.Name = strings.TrimSpace(src.Name)
		src.URL = strings.TrimSpace(src.URL)
		if src.Name == "" {
			return nil, fmt.Errorf("feed %d has no name", i)
		}
		u, err := url.Parse(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("feed %q has invalid url %q", src.Name, src.URL)
		}
		if seen[src.URL] {
			return nil, fmt.Errorf("feed url %q listed twice", src.URL)
		}
		seen[src.URL] = true
		file.Feeds[i] = src
	}
	return file.Feeds, nil
}
