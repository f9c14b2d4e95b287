package converter

import "errors"

var (
	// ErrNoTasks is returned by RunBatch for an empty task list.
	ErrNoTasks = errors.New("no tasks to convert")
	// ErrInvalidConcurrency is returned by RunBatch for a negative worker count.
	ErrInvalidConcurrency = errors.New("concurrency must not be negative")
)
