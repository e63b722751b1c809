package orrery

import (
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// newLogger builds a logfmt logger: a sync-wrapped stdout writer,
// contextualized with a fixed subsystem tag so every line downstream
// only needs to add its own key-value pairs.
func newLogger() kitlog.Logger {
	base := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	return kitlog.With(base, "subsys", "orrery")
}
