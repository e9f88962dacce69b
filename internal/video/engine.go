package video

import "context"

// Engine is an external video encoder. Each export opens its own working set.
type Engine interface {
	// Encoders lists the encoder names the engine supports. An error means
	// the engine cannot run here at all.
	Encoders(ctx context.Context) ([]string, error)
	Open(ctx context.Context) (WorkingSet, error)
}

// WorkingSet is a private scratch area of an engine: write inputs, execute
// one job, read the output, delete everything.
type WorkingSet interface {
	Write(name string, data []byte) error
	// Exec runs the engine with args. onProgress receives progress blocks as
	// the engine reports them and may be nil.
	Exec(ctx context.Context, args []string, onProgress func(Progress)) error
	Read(name string) ([]byte, error)
	// Delete removes names. Missing names are not an error.
	Delete(names ...string) error
	Close() error
}
