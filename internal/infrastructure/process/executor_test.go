package process

import (
	"context"
	"os/exec"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not found")
	}
	return sh
}

type collector struct {
	mu     sync.Mutex
	stdout []string
	stderr []string
}

func (c *collector) out(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stdout = append(c.stdout, line)
}

func (c *collector) err(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stderr = append(c.stderr, line)
}

func TestRunStreamsLinesAndReturnsExitCode(t *testing.T) {
	sh := requireShell(t)
	script := `echo '{"percent":10}'; echo 'Loading config...'; echo 'boom' 1>&2; echo "$1"; exit 2`

	var c collector
	code, err := NewCommandExecutor().Run(context.Background(), ports.RunSpec{
		Binary: sh,
		Args:   []string{"-c", script, "sh", `{"skey":"s"}`},
	}, c.out, c.err)

	require.NoError(t, err)
	assert.Equal(t, 2, code)
	assert.Equal(t, []string{`{"percent":10}`, "Loading config...", `{"skey":"s"}`}, c.stdout)
	assert.Equal(t, []string{"boom"}, c.stderr)
}

func TestRunPassesEnvAndDir(t *testing.T) {
	sh := requireShell(t)
	dir := t.TempDir()

	var c collector
	code, err := NewCommandExecutor().Run(context.Background(), ports.RunSpec{
		Binary: sh,
		Args:   []string{"-c", `echo "$MANGA_EXPORT_SITE"; pwd`},
		Dir:    dir,
		Env:    []string{"MANGA_EXPORT_SITE=mangapark"},
	}, c.out, c.err)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	require.Len(t, c.stdout, 2)
	assert.Equal(t, "mangapark", c.stdout[0])
	assert.Contains(t, c.stdout[1], dir[len(dir)-8:])
}

func TestRunKilledOnCancel(t *testing.T) {
	sh := requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan int, 1)
	go func() {
		code, _ := NewCommandExecutor().Run(ctx, ports.RunSpec{
			Binary: sh,
			Args:   []string{"-c", "echo started; sleep 30"},
		}, func(string) { cancel() }, nil)
		done <- code
	}()

	select {
	case code := <-done:
		assert.NotEqual(t, 0, code)
	case <-time.After(10 * time.Second):
		t.Fatal("process was not killed")
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := NewCommandExecutor().Run(context.Background(), ports.RunSpec{
		Binary: "/definitely/not/here",
	}, nil, nil)
	assert.Error(t, err)
}
