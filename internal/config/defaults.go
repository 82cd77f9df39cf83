package config

import (
	"dsclients/internal/deployment"
	"dsclients/internal/reconciler"
)

const (
	// EnvUsername and EnvPassword are consulted when the parameters leave the credentials empty.
	EnvUsername = "DSCLIENTS_USERNAME"
	EnvPassword = "DSCLIENTS_PASSWORD"
)

// Defaults returns the parameters every load starts from.
func Defaults() Params {
	return Params{
		Port:             deployment.DefaultPort,
		Timeout:          Duration(deployment.DefaultTimeout),
		OnExistenceError: string(reconciler.ExistenceErrorAbort),
		OnReloadError:    string(reconciler.ReloadErrorFail),
	}
}
