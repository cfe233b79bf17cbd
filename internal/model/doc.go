// Package model defines the domain types shared by every vulx component.
//
// The types here are deliberately transient: a Verb and a Mode live for one
// process execution, a ComposedCommand is rebuilt for every build run, and a
// PortLease is never persisted. The only durable state of the tool is the
// workspace cache directory on disk, which is owned by the workspace package.
//
// Errors that must reach the user with a specific process exit code are
// expressed as *CLIError (tool failures) or *BuildError (a delegated
// subprocess failed).
package model
