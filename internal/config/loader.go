package config

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dsclients/internal/deployment"
	"dsclients/internal/reconciler"
	"dsclients/pkg/logging"
)

// LoadError describes a parameter file that could not be loaded.
type LoadError struct {
	FilePath  string // Path of the file that caused the error
	ErrorType string // "io" or "parse"
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s (%s): %v", e.FilePath, e.ErrorType, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadFile reads parameters from a YAML file on top of Defaults. JSON is
// valid YAML, so Ansible args files load the same way.
func LoadFile(path string) (Params, error) {
	params := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, &LoadError{FilePath: path, ErrorType: "io", Err: err}
	}
	if err := Decode(data, &params); err != nil {
		return Params{}, &LoadError{FilePath: path, ErrorType: "parse", Err: err}
	}

	logging.Debug("Config", "Loaded parameters from %s", path)
	return params, nil
}

// Decode unmarshals data into params, keeping values data does not set.
func Decode(data []byte, params *Params) error {
	if err := yaml.Unmarshal(data, params); err != nil {
		return err
	}
	return nil
}

// ApplyEnv fills empty credentials from the environment.
func (p *Params) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if p.Username == "" {
		if v, ok := lookup(EnvUsername); ok {
			p.Username = v
		}
	}
	if p.Password == "" {
		if v, ok := lookup(EnvPassword); ok {
			p.Password = v
		}
	}
}

// Policy returns the reconciler failure policy.
func (p Params) Policy() reconciler.Policy {
	return reconciler.Policy{
		OnExistenceError: reconciler.ExistenceErrorPolicy(p.OnExistenceError),
		OnReloadError:    reconciler.ReloadErrorPolicy(p.OnReloadError),
	}
}

// Request returns the reconciler request for these parameters.
func (p Params) Request() reconciler.Request {
	return reconciler.Request{
		Credentials: deployment.Credentials{Username: p.Username, Password: p.Password},
		ServerClass: p.ServerClass,
		Clients:     append([]string(nil), p.Clients...),
		CheckMode:   p.IsCheckMode(),
	}
}

// ClientOptions returns the deployment client options for these parameters.
func (p Params) ClientOptions() ([]deployment.ClientOption, error) {
	opts := []deployment.ClientOption{
		deployment.WithPort(p.Port),
		deployment.WithTimeout(p.Timeout.Std()),
		deployment.WithInsecureSkipVerify(p.InsecureSkipVerify),
	}

	if p.CAFile != "" {
		pem, err := os.ReadFile(p.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading ca_file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("ca_file contains no PEM certificates")
		}
		opts = append(opts, deployment.WithRootCAs(pool))
	}

	return opts, nil
}

// NewClient builds a deployment client for these parameters.
func (p Params) NewClient() (*deployment.Client, error) {
	opts, err := p.ClientOptions()
	if err != nil {
		return nil, err
	}
	return deployment.NewClient(p.DeploymentServer, opts...)
}
