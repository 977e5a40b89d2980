package cache

import "github.com/rs/zerolog"

// Logger receives diagnostics from the read and tag paths. It defaults to
// a no-op logger; a library stays silent unless asked.
var Logger = zerolog.Nop()

// SetLogger installs a logger for the package. Intended to be called at
// startup, alongside SetPrefix.
func SetLogger(l zerolog.Logger) { Logger = l }
