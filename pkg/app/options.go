package app

import (
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/assistcart/pkg/log"
)

// NamedFlagSetOptions is implemented by the option structs of every binary.
// Flags groups the flags by concern for the help output, Complete fills in
// derived values and Validate aggregates every validation error.
type NamedFlagSetOptions interface {
	Flags() cliflag.NamedFlagSets
	Complete() error
	Validate() error
}

// LogOptionsGetter is implemented by options that carry a log section.
// The App initializes the global logger from it before running.
type LogOptionsGetter interface {
	LogOptions() *log.Options
}
