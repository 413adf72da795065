package adapter

// LineStore persists the lines a relay client sends, one log per client ID.
type LineStore interface {
	// Open prepares the log for id and returns the number of lines already
	// stored for it.
	Open(id string) (int, error)
	Append(id string, line string) error
	// Lines returns every stored line for id in arrival order.
	Lines(id string) ([]string, error)
	// Release is called when the last connection for id goes away.
	Release(id string) error
	Close() error
}
