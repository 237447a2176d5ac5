package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Rules are the word lists that drive title signatures and URL
// canonicalization. An empty list keeps the built-in default.
type Rules struct {
	StopWords      []string `toml:"stop_words"`
	TrackingParams []string `toml:"tracking_params"`
	Columns        Columns  `toml:"columns"`
}

// Columns names the CSV headers read as title, link and end date.
type Columns struct {
	Title   string `toml:"title"`
	URL     string `toml:"url"`
	EndDate string `toml:"end_date"`
}

func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file '%s': %w", path, err)
	}

	var rules Rules
	if err := toml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return &rules, nil
}
