package regress

import (
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

// Manifest carries per-case threshold overrides, loaded from a YAML file
// checked in next to the benchmark suite:
//
//	threshold: 0.05
//	benchmarks:
//	  - name: sum_2d_*
//	    threshold: 0.15
//	  - name: copy_small
//	    threshold: 0.02
//
// Names match exactly or as path.Match patterns. The file-level threshold,
// when set, replaces the configured default.
type Manifest struct {
	Threshold  float64      `yaml:"threshold,omitempty"`
	Benchmarks []CaseConfig `yaml:"benchmarks"`
}

// CaseConfig overrides the threshold for the cases matching Name.
type CaseConfig struct {
	Name      string  `yaml:"name"`
	Threshold float64 `yaml:"threshold"`
}

// LoadManifest reads a thresholds file.
func LoadManifest(file string) (*Manifest, error) {
	buf, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("regress: reading thresholds: %w", err)
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(buf, m); err != nil {
		return nil, fmt.Errorf("regress: parsing %s: %w", file, err)
	}
	for _, bc := range m.Benchmarks {
		if bc.Name == "" {
			return nil, fmt.Errorf("regress: %s: benchmark entry without a name", file)
		}
		if bc.Threshold < 0 {
			return nil, fmt.Errorf("regress: %s: negative threshold for %s", file, bc.Name)
		}
	}
	return m, nil
}

// Lookup returns the threshold for a case name. First matching entry
// wins; a file-level threshold applies when no entry matches.
func (m *Manifest) Lookup(name string) (float64, bool) {
	for _, bc := range m.Benchmarks {
		if bc.Name == name {
			return bc.Threshold, true
		}
		if ok, err := path.Match(bc.Name, name); err == nil && ok {
			return bc.Threshold, true
		}
	}
	if m.Threshold > 0 {
		return m.Threshold, true
	}
	return 0, false
}
