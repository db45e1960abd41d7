// Package serviceiface defines what the app manager starts and stops.
package serviceiface

// Service is one long-running component named in services.yaml. Start must
// return once the component is serving; Stop drains it.
type Service interface {
	Name() string
	Start() error
	Stop() error
}
