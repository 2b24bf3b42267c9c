// Package config defines the format-agnostic model of a request session,
// along with the Loader interface for reading it from various sources.
//
// The `config.Model` is the single source of truth for the `app` package.
// Concrete loaders, such as the one for HCL, are provided in separate
// packages.
package config
