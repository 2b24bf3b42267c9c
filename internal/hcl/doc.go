// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file parsing, schema decoding and the
// translation of HCL blocks into the format-agnostic session model.
package hcl
