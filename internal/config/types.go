package config

import (
	"fmt"

	"github.com/school-notify/internal/domain"
	"github.com/spf13/viper"
)

type typeEntry struct {
	Channels  []string `mapstructure:"channels"`
	Important bool     `mapstructure:"important"`
}

// LoadTypeRegistry reads notification types from a YAML or JSON file:
//
//	types:
//	  exam.reminder:
//	    channels: [database, mail, push, sms]
//	    important: true
//
// An empty path yields the built-in registry.
func LoadTypeRegistry(path string) (domain.TypeRegistry, error) {
	if path == "" {
		return domain.DefaultTypeRegistry(), nil
	}
	// Type names contain dots, so the key delimiter must not.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return domain.TypeRegistry{}, fmt.Errorf("read types file: %w", err)
	}
	var raw struct {
		Types map[string]typeEntry `mapstructure:"types"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return domain.TypeRegistry{}, fmt.Errorf("decode types file: %w", err)
	}
	if len(raw.Types) == 0 {
		return domain.TypeRegistry{}, fmt.Errorf("types file %s defines no types", path)
	}
	defs := make(map[string]domain.TypeDefinition, len(raw.Types))
	for name, e := range raw.Types {
		chs, err := domain.ParseChannels(e.Channels)
		if err != nil {
			return domain.TypeRegistry{}, fmt.Errorf("type %s: %w", name, err)
		}
		defs[name] = domain.TypeDefinition{Channels: chs, Important: e.Important}
	}
	return domain.NewTypeRegistry(defs)
}
