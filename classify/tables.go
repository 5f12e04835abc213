package classify

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed signals.yaml
var defaultSignals []byte

// FrameworkSignal describes one front-end framework family. A family counts
// at most once however many of its markers are present.
type FrameworkSignal struct {
	Family    string   `yaml:"family"`
	Weight    int      `yaml:"weight"`
	Globals   []string `yaml:"globals"`
	Selectors []string `yaml:"selectors"`
}

// SelectorSignal is a weighted DOM-selector presence check.
type SelectorSignal struct {
	Weight    int      `yaml:"weight"`
	Selectors []string `yaml:"selectors"`
}

// AppRootSignal checks whether a single app container owns essentially the
// whole body text.
type AppRootSignal struct {
	Weight    int      `yaml:"weight"`
	Selectors []string `yaml:"selectors"`
	BodyShare float64  `yaml:"body_share"`
}

// EscalationTables hold the independently scored UltraComplexSPA signals.
type EscalationTables struct {
	Placeholder struct {
		Weight  int      `yaml:"weight"`
		Phrases []string `yaml:"phrases"`
	} `yaml:"placeholder"`
	StateManagement struct {
		Weight  int      `yaml:"weight"`
		Globals []string `yaml:"globals"`
	} `yaml:"state_management"`
	ShortBody struct {
		Weight int `yaml:"weight"`
		MaxLen int `yaml:"max_len"`
	} `yaml:"short_body"`
	DifficultDomains struct {
		Weight int      `yaml:"weight"`
		Hosts  []string `yaml:"hosts"`
	} `yaml:"difficult_domains"`
}

// Tables is the full versioned signal configuration.
type Tables struct {
	Frameworks        []FrameworkSignal `yaml:"frameworks"`
	Routing           struct{ Weight int `yaml:"weight"` } `yaml:"routing"`
	LoadingIndicators SelectorSignal    `yaml:"loading_indicators"`
	AppRoot           AppRootSignal     `yaml:"app_root"`
	Escalation        EscalationTables  `yaml:"escalation"`
}

// LoadTables parses signal tables from YAML.
func LoadTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("classify: parse signal tables: %w", err)
	}
	if t.AppRoot.BodyShare <= 0 {
		t.AppRoot.BodyShare = 0.8
	}
	if t.Escalation.ShortBody.MaxLen <= 0 {
		t.Escalation.ShortBody.MaxLen = 500
	}
	return &t, nil
}

// DefaultTables returns the embedded signal tables.
func DefaultTables() *Tables {
	t, err := LoadTables(defaultSignals)
	if err != nil {
		// The embedded tables are part of the build; failing to parse them
		// is a programming error.
		panic(err)
	}
	return t
}
