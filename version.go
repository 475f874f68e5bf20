// Package botcms carries the service identity shared by the command-line
// entry point and logging setup
package botcms

const (
	// Name is the service name reported in logs
	Name = "botcms"

	// Version is the engine version reported in logs and the health
	// endpoint
	Version = "2.0.0"
)
