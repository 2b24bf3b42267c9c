// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the session lifecycle: launching requests,
// arming cancel rules, serving the control endpoints and reporting outcomes.
// It is decoupled from any specific entrypoint like a CLI.
package app
