package memtable

// Logger receives progress and diagnostic lines from long-running tooling
// built on this package. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Printf(format string, v ...any) {}
