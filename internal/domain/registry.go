package domain

import (
	"fmt"
	"sort"
)

// TypeDefinition describes a notification type: which channels it uses when the
// caller names none, and whether clients should surface it prominently.
type TypeDefinition struct {
	Channels  []Channel
	Important bool
}

// TypeRegistry is an immutable type -> definition table. The zero value is empty.
type TypeRegistry struct {
	types map[string]TypeDefinition
}

// NewTypeRegistry copies defs into a new registry, validating each channel list.
func NewTypeRegistry(defs map[string]TypeDefinition) (TypeRegistry, error) {
	types := make(map[string]TypeDefinition, len(defs))
	for name, def := range defs {
		if name == "" {
			return TypeRegistry{}, fmt.Errorf("empty type name: %w", ErrBadRequest)
		}
		if len(def.Channels) == 0 {
			return TypeRegistry{}, fmt.Errorf("type %s has no channels: %w", name, ErrBadRequest)
		}
		chs, err := ParseChannels(ChannelStrings(def.Channels))
		if err != nil {
			return TypeRegistry{}, fmt.Errorf("type %s: %w", name, err)
		}
		types[name] = TypeDefinition{Channels: chs, Important: def.Important}
	}
	return TypeRegistry{types: types}, nil
}

// DefaultTypeRegistry returns the built-in school notification types.
func DefaultTypeRegistry() TypeRegistry {
	all := []Channel{ChannelDatabase, ChannelMail, ChannelPush, ChannelSMS}
	r, _ := NewTypeRegistry(map[string]TypeDefinition{
		"exam.reminder":     {Channels: all, Important: true},
		"exam.result":       {Channels: []Channel{ChannelDatabase, ChannelMail, ChannelPush}, Important: true},
		"fee.due":           {Channels: []Channel{ChannelDatabase, ChannelMail, ChannelSMS}, Important: true},
		"attendance.alert":  {Channels: []Channel{ChannelDatabase, ChannelSMS, ChannelPush}, Important: true},
		"admission.update":  {Channels: []Channel{ChannelDatabase, ChannelMail}},
		"assignment.posted": {Channels: []Channel{ChannelDatabase, ChannelPush}},
		"announcement":      {Channels: []Channel{ChannelDatabase, ChannelPush}},
		"general":           {Channels: []Channel{ChannelDatabase}},
		"system.test":       {Channels: all},
	})
	return r
}

// Lookup returns the definition for t. The returned channel slice is a copy.
func (r TypeRegistry) Lookup(t string) (TypeDefinition, bool) {
	def, ok := r.types[t]
	if !ok {
		return TypeDefinition{}, false
	}
	return TypeDefinition{Channels: append([]Channel(nil), def.Channels...), Important: def.Important}, true
}

// Types lists registered type names in sorted order.
func (r TypeRegistry) Types() []string {
	out := make([]string, 0, len(r.types))
	for k := range r.types {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
