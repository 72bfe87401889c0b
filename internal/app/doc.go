// Package app contains the core application logic. It loads a field
// description, builds it into a region and evaluates, samples or prints
// fields, decoupled from any specific entrypoint like a CLI or server.
package app
