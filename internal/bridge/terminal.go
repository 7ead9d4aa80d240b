package bridge

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var stepNames = map[int]string{
	1: "scrape",
	2: "enrich",
	3: "generate",
	4: "finish",
}

func StepName(step int) string {
	if name, ok := stepNames[step]; ok {
		return name
	}
	if step <= 0 {
		return "waiting"
	}
	return fmt.Sprintf("step %d", step)
}

// TerminalRenderer draws a single progress bar and prints log lines above it.
// When out is not a terminal it falls back to plain lines.
type TerminalRenderer struct {
	out io.Writer
	p   *mpb.Progress
	bar *mpb.Bar

	step  atomic.Int64
	start time.Time
}

func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	r := &TerminalRenderer{out: out, start: time.Now()}
	if !isTerminal(out) {
		return r
	}
	r.p = mpb.New(
		mpb.WithWidth(52),
		mpb.WithOutput(out),
		mpb.WithAutoRefresh(),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	r.bar = r.p.New(
		100,
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(_ decor.Statistics) string {
				return fmt.Sprintf("%-9s", StepName(int(r.step.Load())))
			}),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncWidth),
			decor.Any(func(_ decor.Statistics) string {
				return fmt.Sprintf(" | %ds", r.elapsed())
			}),
		),
	)
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *TerminalRenderer) elapsed() int {
	return int(time.Since(r.start).Seconds())
}

func (r *TerminalRenderer) Percent(percent int) {
	if r.bar != nil {
		r.bar.SetCurrent(int64(percent))
	}
}

func (r *TerminalRenderer) Step(step int) {
	if r.step.Swap(int64(step)) == int64(step) {
		return
	}
	if r.p == nil {
		fmt.Fprintf(r.out, "-- %s\n", StepName(step))
	}
}

func (r *TerminalRenderer) Log(entry domain.LogEntry) {
	w := r.out
	if r.p != nil {
		w = r.p
	}
	fmt.Fprintf(w, "[%s] %-7s %s\n", entry.Time, entry.Type, entry.Message)
}

func (r *TerminalRenderer) Done(record domain.ProgressRecord) {
	if r.p == nil {
		fmt.Fprintf(r.out, "%s at %d%% after %ds\n", record.Status, record.Percent, r.elapsed())
		return
	}
	if record.Status == domain.ExportStatusCompleted {
		r.bar.SetCurrent(100)
		r.bar.SetTotal(100, true)
	} else {
		r.bar.Abort(false)
	}
	r.p.Wait()
}
