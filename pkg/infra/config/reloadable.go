package config

// Reloadable is implemented by components that apply configuration changes
// at runtime. OnConfigChange receives the freshly decoded section and must
// either apply it completely or keep the previous configuration.
type Reloadable interface {
	OnConfigChange(newConfig interface{}) error
}
