package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SinkConfig is one entry of the sinks file. Only the fields relevant to
// Type are read.
type SinkConfig struct {
	Type  string   `yaml:"type"`
	Name  string   `yaml:"name"`
	Modes []string `yaml:"modes"`

	// discord
	WebhookURL string `yaml:"webhook_url"`

	// autoremote
	Key    string `yaml:"key"`
	Prefix string `yaml:"prefix"`

	// kodi, email; endpoint override for autoremote
	Address       string `yaml:"address"`
	Port          int    `yaml:"port"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	DisplayTimeMs int    `yaml:"display_time_ms"`

	// email
	From  string   `yaml:"from"`
	To    []string `yaml:"to"`
	Title string   `yaml:"title"`

	// history
	Path string `yaml:"path"`

	// fanout
	Listen  string   `yaml:"listen"`
	Origins []string `yaml:"origins"`
}

type sinksFile struct {
	Sinks []SinkConfig `yaml:"sinks"`
}

// LoadSinks reads the sinks file. ${VAR} references are expanded from the
// environment so secrets can stay in .env.
func LoadSinks(path string) ([]SinkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sinks: %w", err)
	}
	return ParseSinks(data)
}

func ParseSinks(data []byte) ([]SinkConfig, error) {
	var f sinksFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, fmt.Errorf("parse sinks: %w", err)
	}
	for i, s := range f.Sinks {
		if s.Type == "" {
			return nil, fmt.Errorf("sinks[%d]: missing type", i)
		}
		if s.Name == "" {
			f.Sinks[i].Name = fmt.Sprintf("%s-%d", s.Type, i)
		}
	}
	return f.Sinks, nil
}
