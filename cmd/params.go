package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dsclients/internal/config"
	"dsclients/internal/deployment"
	"dsclients/internal/formatting"
	"dsclients/internal/reconciler"
)

// paramFlags binds the invocation parameters to command line flags.
// Flags only override values from --config when explicitly set.
type paramFlags struct {
	configFile string

	server           string
	username         string
	password         string
	serverClass      string
	clients          []string
	port             int
	timeout          time.Duration
	insecure         bool
	caFile           string
	onExistenceError string
	onReloadError    string
	check            bool

	output  string
	quiet   bool
	noColor bool
}

func (f *paramFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configFile, "config", "c", "", "YAML file with the invocation parameters")
	fs.StringVarP(&f.server, "server", "s", "", "Deployment server address (host, host:port or URL)")
	fs.StringVarP(&f.username, "username", "u", "", "User for the management API (or $"+config.EnvUsername+")")
	fs.StringVar(&f.password, "password", "", "Password for the management API (prefer $"+config.EnvPassword+")")
	fs.StringVar(&f.serverClass, "server-class", "", "Server class receiving the clients")
	fs.StringSliceVar(&f.clients, "client", nil, "Client to add (repeatable or comma separated)")
	fs.IntVar(&f.port, "port", deployment.DefaultPort, "Management port when the address has none")
	fs.DurationVar(&f.timeout, "timeout", deployment.DefaultTimeout, "Timeout of each request")
	fs.BoolVar(&f.insecure, "insecure-skip-verify", false, "Do not verify the management certificate")
	fs.StringVar(&f.caFile, "ca-file", "", "PEM bundle used to verify the management certificate")
	fs.StringVar(&f.onExistenceError, "on-existence-error", string(reconciler.ExistenceErrorAbort), "What to do when the existence check fails (abort, assume-missing)")
	fs.StringVar(&f.onReloadError, "on-reload-error", string(reconciler.ReloadErrorFail), "What to do when the reload fails (fail, ignore)")
	fs.BoolVar(&f.check, "check", false, "Authenticate only, do not modify the server class")

	fs.StringVarP(&f.output, "output", "o", string(formatting.FormatTable), "Output format (table, json, yaml)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Suppress non-essential output")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
}

// load builds the parameters from --config, explicitly set flags and the environment, in that order.
func (f *paramFlags) load(cmd *cobra.Command) (config.Params, error) {
	params := config.Defaults()
	if f.configFile != "" {
		loaded, err := config.LoadFile(f.configFile)
		if err != nil {
			return config.Params{}, err
		}
		params = loaded
	}

	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("server", func() { params.DeploymentServer = f.server })
	set("username", func() { params.Username = f.username })
	set("password", func() { params.Password = f.password })
	set("server-class", func() { params.ServerClass = f.serverClass })
	set("client", func() { params.Clients = append([]string(nil), f.clients...) })
	set("port", func() { params.Port = f.port })
	set("timeout", func() { params.Timeout = config.Duration(f.timeout) })
	set("insecure-skip-verify", func() { params.InsecureSkipVerify = f.insecure })
	set("ca-file", func() { params.CAFile = f.caFile })
	set("on-existence-error", func() { params.OnExistenceError = f.onExistenceError })
	set("on-reload-error", func() { params.OnReloadError = f.onReloadError })
	set("check", func() { params.CheckMode = f.check })

	params.ApplyEnv(nil)

	if err := params.Validate(); err != nil {
		return config.Params{}, err
	}
	return params, nil
}

func (f *paramFlags) formatOptions() (formatting.Options, error) {
	format, err := formatting.ParseFormat(f.output)
	if err != nil {
		return formatting.Options{}, err
	}
	return formatting.Options{Format: format, Quiet: f.quiet, Color: !f.noColor}, nil
}

// reconcile runs one invocation for params. Setup failures are reported as a failed result.
func reconcile(ctx context.Context, params config.Params) reconciler.Result {
	client, err := params.NewClient()
	if err != nil {
		return reconciler.InvalidResult(params.ServerClass, err)
	}
	return reconciler.New(client, reconciler.WithPolicy(params.Policy())).Run(ctx, params.Request())
}
