package app

import (
	"github.com/kart-io/version"
)

// GetVersion returns the build version injected at link time.
func GetVersion() string {
	return version.Get().GitVersion
}
