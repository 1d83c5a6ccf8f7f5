package app

import (
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
)

// CliOptions is the interface for options driven by an App.
type CliOptions interface {
	// Flags returns the option flags grouped into named sections.
	Flags() cliflag.NamedFlagSets
	// Complete fills in defaults derived from other fields.
	Complete() error
	// Validate validates the options.
	Validate() error
}

// ViperLoader is implemented by options that decode sections viper.Unmarshal
// cannot handle, such as registries keyed by name.
type ViperLoader interface {
	LoadFromViper(v *viper.Viper) error
}
