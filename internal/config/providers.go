package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ProviderToggle is one provider's entry in the providers file.
type ProviderToggle struct {
	Enabled  *bool  `yaml:"enabled"`
	Token    string `yaml:"token"`
	Endpoint string `yaml:"endpoint"`
}

// ProvidersFile overrides provider order and per-provider settings for a run.
// JSON files parse too.
type ProvidersFile struct {
	Order     []string                  `yaml:"order"`
	Providers map[string]ProviderToggle `yaml:",inline"`
}

// LoadProvidersFile reads a providers file. An empty path yields an empty
// ProvidersFile.
func LoadProvidersFile(path string) (*ProvidersFile, error) {
	pf := &ProvidersFile{Providers: map[string]ProviderToggle{}}
	if strings.TrimSpace(path) == "" {
		return pf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read providers file %s", path)
	}
	if err := yaml.Unmarshal(data, pf); err != nil {
		return nil, eris.Wrapf(err, "config: parse providers file %s", path)
	}
	if pf.Providers == nil {
		pf.Providers = map[string]ProviderToggle{}
	}
	return pf, nil
}

// Disabled returns the providers explicitly switched off.
func (p *ProvidersFile) Disabled() map[string]bool {
	out := map[string]bool{}
	for name, t := range p.Providers {
		if t.Enabled != nil && !*t.Enabled {
			out[name] = true
		}
	}
	return out
}

// Apply folds the file's settings into cfg: order replaces the pipeline
// order, and diffbot/trafilatura entries override their sections.
func (p *ProvidersFile) Apply(cfg *Config) {
	if len(p.Order) > 0 {
		cfg.Pipeline.Order = append([]string(nil), p.Order...)
	}
	if t, ok := p.Providers["diffbot"]; ok {
		if t.Enabled != nil {
			cfg.Diffbot.Enabled = *t.Enabled
		}
		if t.Token != "" {
			cfg.Diffbot.Token = t.Token
		}
		if t.Endpoint != "" {
			cfg.Diffbot.Endpoint = t.Endpoint
		}
	}
	if t, ok := p.Providers["trafilatura"]; ok {
		if t.Enabled != nil {
			cfg.Trafilatura.Enabled = *t.Enabled
		}
		if t.Endpoint != "" {
			cfg.Trafilatura.Endpoint = t.Endpoint
		}
	}
}
