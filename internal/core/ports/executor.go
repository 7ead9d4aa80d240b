package ports

import "context"

// RunSpec describes one invocation of the export script.
type RunSpec struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
}

// Executor runs a child process, handing every stdout and stderr line to the
// callbacks as it arrives. The exit code is returned when the process ran;
// err is set when it could not be started or its output could not be read.
// Cancelling ctx kills the process.
type Executor interface {
	Run(ctx context.Context, spec RunSpec, onStdout, onStderr func(string)) (exitCode int, err error)
}
