package output

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/treesync/pkg/models"
)

const refreshRate = 100 * time.Millisecond

// ProgressBars draws one byte-counting bar per phase (hashing, copying).
// Observe is safe for concurrent use and can be passed as a models.ProgressFunc.
type ProgressBars struct {
	mu sync.Mutex
	w  io.Writer

	bar        *pb.ProgressBar
	totalFiles int
	doneFiles  int
	failed     int
}

// NewProgressBars creates progress bars writing to w
func NewProgressBars(w io.Writer) *ProgressBars {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressBars{w: w}
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Observe handles one progress update
func (p *ProgressBars) Observe(u models.ProgressUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch u.Type {
	case models.ProgressHashStart:
		p.start("Hashing ", u.TotalFiles, u.TotalBytes)

	case models.ProgressCopyStart:
		p.start("Copying ", u.TotalFiles, u.TotalBytes)

	case models.ProgressHashFile:
		if p.bar != nil {
			p.bar.Add64(u.Bytes)
		}
		p.fileDone(u.Err)

	case models.ProgressCopyBytes:
		if p.bar != nil {
			p.bar.Add64(u.Bytes)
		}

	case models.ProgressCopyFile:
		p.fileDone(u.Err)

	case models.ProgressDone:
		p.finish()
	}
}

// Close finishes a bar left open by an interrupted phase
func (p *ProgressBars) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finish()
}

func (p *ProgressBars) start(prefix string, files int, bytes int64) {
	p.finish()
	p.totalFiles = files
	p.doneFiles = 0
	p.failed = 0

	p.bar = pb.New64(bytes).
		SetTemplate(pb.Full).
		SetWriter(p.w).
		SetRefreshRate(refreshRate).
		Set(pb.Bytes, true).
		Set("prefix", prefix)
	p.updateSuffix()
	p.bar.Start()
}

func (p *ProgressBars) fileDone(err error) {
	p.doneFiles++
	if err != nil {
		p.failed++
	}
	p.updateSuffix()
}

func (p *ProgressBars) updateSuffix() {
	if p.bar == nil {
		return
	}
	suffix := fmt.Sprintf(" %d/%d files", p.doneFiles, p.totalFiles)
	if p.failed > 0 {
		suffix += fmt.Sprintf(", %d failed", p.failed)
	}
	p.bar.Set("suffix", suffix)
}

func (p *ProgressBars) finish() {
	if p.bar == nil {
		return
	}
	p.bar.Finish()
	p.bar = nil
}
