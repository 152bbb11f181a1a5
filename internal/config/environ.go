package config

import "os"

// allEnviron is a var so tests can substitute a fixed environment without
// mutating the process's real one.
var allEnviron = os.Environ
