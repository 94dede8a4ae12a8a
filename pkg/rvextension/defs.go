package rvextension

import (
	"github.com/OCAP2/position-tracker/internal/dispatcher"
)

// configStruct is the central configuration used by this library
type configStruct struct {
	// rvExtensionVersion is returned by RVExtensionVersion when the host loads the library
	rvExtensionVersion string

	// extensionName is passed as the first callback argument
	extensionName string

	// dispatcher handles event routing
	dispatcher *dispatcher.Dispatcher
}

// Config defines how calls to this extension will be handled
var Config = configStruct{
	rvExtensionVersion: "No version set",
	extensionName:      "position_tracker",
}

// SetVersion sets the version string reported to the host.
func SetVersion(version string) {
	Config.rvExtensionVersion = version
}

// SetExtensionName sets the name the host sees on callbacks.
func SetExtensionName(name string) {
	Config.extensionName = name
}

// SetDispatcher sets the event dispatcher for handling commands
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}
