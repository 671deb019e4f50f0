// Package app defines the contract cmd/* binaries use to start a process
// without depending on how it is wired.
package app

// Runner represents a runnable application component.
type Runner interface {
	Run() error
}
