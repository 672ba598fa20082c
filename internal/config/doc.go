// Package config loads the subflow TOML configuration.
//
// The file is looked up at the path given on the command line, then
// ./subflow.toml, then ~/.config/subflow/config.toml. Missing files are not an
// error; the defaults apply.
package config
