package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mangaexporter/backend/internal/core/ports"
)

// maxLineBytes bounds a single output line; result payloads can be large.
const maxLineBytes = 4 * 1024 * 1024

// CommandExecutor runs the export script as a real child process.
type CommandExecutor struct {
	waitDelay time.Duration
}

func NewCommandExecutor() *CommandExecutor {
	return &CommandExecutor{waitDelay: 2 * time.Second}
}

func (e *CommandExecutor) Run(ctx context.Context, spec ports.RunSpec, onStdout, onStderr func(string)) (int, error) {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.WaitDelay = e.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start command: %w", err)
	}

	// a killed script can leave grandchildren holding the pipes open
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		timer := time.NewTimer(e.waitDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
			_ = stdout.Close()
			_ = stderr.Close()
		case <-stop:
		}
	}()

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			if forward != nil {
				forward(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return -1, fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("wait command: %w", err)
	}
	return 0, nil
}
