// Package config loads and validates the parameters of one dsclients run.
//
// Parameters come from a YAML file (an Ansible args file is JSON and loads the
// same way), from command line flags layered on top by the cmd package, and
// from DSCLIENTS_USERNAME / DSCLIENTS_PASSWORD for credentials left empty.
//
// Unknown keys are ignored so the extra _ansible_* keys Ansible adds do not
// break decoding.
package config
