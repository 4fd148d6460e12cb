package rss

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/signalfeed/internal/content"
)

// FeedsConfig is YAML config structure
//
//	feeds:
//	  - name: Adweek
//	    endpoint: https://www.adweek.com/feed/
//	    vertical: Technology & Media
//	    priority: HIGH
//	    kind: article
type FeedsConfig struct {
	Feeds []feedEntry `yaml:"feeds"`
}

type feedEntry struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"`
	Vertical string `yaml:"vertical"`
	Priority string `yaml:"priority"`
	Kind     string `yaml:"kind"`
}

// Source is one configured feed.
type Source struct {
	Name     string
	Endpoint string
	Vertical content.Vertical // empty when the feed spans verticals
	Priority content.Priority
	Kind     content.Kind
}

// LoadFeeds reads the feed list from a YAML file
func LoadFeeds(path string) ([]Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg FeedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return parseFeeds(cfg.Feeds)
}

func parseFeeds(entries []feedEntry) ([]Source, error) {
	sources := make([]Source, 0, len(entries))
	seen := make(map[string]bool)
	for i, e := range entries {
		name := strings.TrimSpace(e.Name)
		endpoint := strings.TrimSpace(e.Endpoint)
		if name == "" || endpoint == "" {
			return nil, fmt.Errorf("feed #%d: name and endpoint are required", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("feed %q declared twice", name)
		}
		seen[name] = true

		kind, err := content.ParseKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", name, err)
		}
		src := Source{
			Name:     name,
			Endpoint: endpoint,
			Priority: content.ParsePriority(e.Priority),
			Kind:     kind,
		}
		if strings.TrimSpace(e.Vertical) != "" {
			v, ok := content.ParseVertical(e.Vertical)
			if !ok {
				return nil, fmt.Errorf("feed %q: unknown vertical %q", name, e.Vertical)
			}
			src.Vertical = v
		}
		sources = append(sources, src)
	}
	return sources, nil
}
