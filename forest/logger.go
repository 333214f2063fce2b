package forest

import (
	"log"
	"os"
)

// verboseLogger gates stdlib *log.Logger output behind a verbose flag,
// mirroring cmd/botanic/log.go's boolean logger type: the teacher writes
// to stderr only when --verbose is passed, and this package reuses that
// rule for ensemble-level progress (one line per tree built)
// rather than introducing a logging framework the teacher itself never
// uses (see DESIGN.md).
type verboseLogger struct {
	verbose bool
	l       *log.Logger
}

func newLogger(verbose bool, prefix string) *verboseLogger {
	return &verboseLogger{
		verbose: verbose,
		l:       log.New(os.Stderr, prefix+": ", log.LstdFlags),
	}
}

func (vl *verboseLogger) Logf(format string, args ...interface{}) {
	if !vl.verbose {
		return
	}
	vl.l.Printf(format, args...)
}
