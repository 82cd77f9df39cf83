package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Params are the invocation parameters. The yaml keys match the Ansible
// module options so an Ansible args file decodes directly into Params.
type Params struct {
	DeploymentServer string   `yaml:"deployment_server"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ServerClass      string   `yaml:"server_class"`
	Clients          []string `yaml:"clients"`

	CheckMode bool `yaml:"check_mode,omitempty"`

	Port               int      `yaml:"port,omitempty"`                 // Management port when deployment_server has none (default: 8089)
	Timeout            Duration `yaml:"timeout,omitempty"`              // Per-request timeout (default: 10s)
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify,omitempty"` // Skip TLS verification of the management certificate
	CAFile             string   `yaml:"ca_file,omitempty"`              // PEM bundle used to verify the management certificate

	OnExistenceError string `yaml:"on_existence_error,omitempty"` // abort | assume-missing
	OnReloadError    string `yaml:"on_reload_error,omitempty"`    // fail | ignore

	// Set by Ansible in the args file of a binary module.
	AnsibleCheckMode bool `yaml:"_ansible_check_mode,omitempty"`
	AnsibleVerbosity int  `yaml:"_ansible_verbosity,omitempty"`
}

// IsCheckMode reports whether the run must not modify the server class.
func (p Params) IsCheckMode() bool {
	return p.CheckMode || p.AnsibleCheckMode
}

// Redacted returns a copy safe to print or log.
func (p Params) Redacted() Params {
	if p.Password != "" {
		p.Password = "<redacted>"
	}
	return p
}

// Duration is a time.Duration that decodes from "10s" style strings or from a
// plain number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: timeout must be a scalar", value.Line)
	}
	raw := strings.TrimSpace(value.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid timeout %q: %w", value.Line, raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
