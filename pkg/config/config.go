// Package config holds the ServerConfig that governs which listeners the
// debug server runs and which topics stream, plus a Controller that fans
// out change notifications over a channel — the Go-native replacement for
// the C++ Setting/Observer pattern.
package config

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ServerConfig is the mutable configuration surface of the debug server.
// Every field here can be changed at runtime by whatever owns the
// Controller (a CLI flag reload, an admin endpoint, a test); validate
// struct tags bound the ranges a caller may set.
type ServerConfig struct {
	HTTPEnable bool `validate:"-"`

	MachinePort uint16 `validate:"required,min=1024,max=65535"`
	IOPort      uint16 `validate:"required,min=1024,max=65535"`
	CPUPort     uint16 `validate:"required,min=1024,max=65535"`
	MemoryPort  uint16 `validate:"required,min=1024,max=65535"`

	PushEnable bool   `validate:"-"`
	PushPort   uint16 `validate:"required,min=1024,max=65535"`

	StreamCPU  bool `validate:"-"`
	StreamMem  bool `validate:"-"`
	StreamIO   bool `validate:"-"`
	StreamSlot bool `validate:"-"`
}

// Validate checks c against its struct tags, returning the
// validator.ValidationErrors for every failing field, or nil.
func (c ServerConfig) Validate() error {
	return validate.Struct(c)
}

// Default returns a ServerConfig with every listener enabled and every
// topic streamed, on the same port numbers original_source's DebugServer
// uses for its default Setting values.
func Default() ServerConfig {
	return ServerConfig{
		HTTPEnable:  true,
		MachinePort: 65501,
		IOPort:      65502,
		CPUPort:     65503,
		MemoryPort:  65504,
		PushEnable:  true,
		PushPort:    65505,
		StreamCPU:   true,
		StreamMem:   true,
		StreamIO:    true,
		StreamSlot:  true,
	}
}
