package config

import "os"

// EnvMode names the environment variable selecting the build mode.
const EnvMode = "NODE_ENV"

// Mode is the development/production switch. It is computed once at startup
// and passed to every pipeline constructor.
type Mode int

const (
	ModeDevelopment Mode = iota
	ModeProduction
)

// ParseMode maps a NODE_ENV lookup to a Mode: unset or "development" is
// development (an empty value included), any other value is production.
func ParseMode(value string, set bool) Mode {
	if !set || value == "" || value == "development" {
		return ModeDevelopment
	}
	return ModeProduction
}

// ModeFromEnv reads NODE_ENV from the process environment.
func ModeFromEnv() Mode {
	v, ok := os.LookupEnv(EnvMode)
	return ParseMode(v, ok)
}

func (m Mode) IsDevelopment() bool { return m == ModeDevelopment }

func (m Mode) String() string {
	if m == ModeDevelopment {
		return "development"
	}
	return "production"
}
