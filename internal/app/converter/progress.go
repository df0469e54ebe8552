package converter

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"video-conversion/internal/app/conversion"
)

type ProgressConfig struct {
	Enabled bool
	Writer  io.Writer
}

// ProgressManager draws one bar per engine pass. A disabled manager has no container
// and every method is a no-op.
type ProgressManager struct {
	container *mpb.Progress

	mu   sync.Mutex
	bars map[string]*mpb.Bar
}

var _ conversion.PassObserver = (*ProgressManager)(nil)

func NewProgressManager(config ProgressConfig) *ProgressManager {
	pm := &ProgressManager{bars: map[string]*mpb.Bar{}}
	if !config.Enabled {
		return pm
	}
	out := config.Writer
	if out == nil {
		out = os.Stderr
	}
	pm.container = mpb.New(mpb.WithOutput(out), mpb.WithRefreshRate(150*time.Millisecond))
	return pm
}

// PassStarted adds a bar sized to the pass. Empty passes get no bar.
func (pm *ProgressManager) PassStarted(pass string, total int) {
	if pm.container == nil || total <= 0 {
		return
	}
	bar := pm.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(pass, decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d/%d jobs", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_MMSS, decor.WCSyncSpace), " done"),
		),
	)

	pm.mu.Lock()
	pm.bars[pass] = bar
	pm.mu.Unlock()
}

func (pm *ProgressManager) JobDone(pass string) {
	if pm.container == nil {
		return
	}
	pm.mu.Lock()
	bar := pm.bars[pass]
	pm.mu.Unlock()
	if bar != nil {
		bar.Increment()
	}
}

// Wait blocks until every bar is complete, then stops rendering.
func (pm *ProgressManager) Wait() {
	if pm.container != nil {
		pm.container.Wait()
	}
}

// Shutdown drops unfinished bars and stops rendering without waiting.
func (pm *ProgressManager) Shutdown() {
	if pm.container == nil {
		return
	}
	pm.mu.Lock()
	for _, bar := range pm.bars {
		bar.Abort(false)
	}
	pm.mu.Unlock()
	pm.container.Shutdown()
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ShouldShowProgress is true when forced or when stderr is a terminal.
func ShouldShowProgress(forced bool) bool {
	return forced || IsTTY(os.Stderr)
}
