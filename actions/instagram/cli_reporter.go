package instagram

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/PiotrWarzachowski/social-uploader/internal/platform/instagram"
)

// CLIReporter renders reel upload progress as a single terminal bar. The
// bar is created on the first UPLOAD report, once the size is known.
type CLIReporter struct {
	progress *mpb.Progress
	bar      *mpb.Bar
	mu       sync.Mutex

	status atomic.Value
}

func NewCLIReporter() *CLIReporter {
	r := &CLIReporter{progress: mpb.New(mpb.WithWidth(60))}
	r.status.Store("Initializing...")
	return r
}

func (r *CLIReporter) Report(p instagram.ProgressReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch p.Step {
	case instagram.StepPrepare:
		r.status.Store("📦 Preparing...")
	case instagram.StepUpload:
		r.status.Store("🎬 Uploading")
		if r.bar == nil && p.TotalBytes > 0 {
			r.bar = r.newBar(p.TotalBytes)
		}
		if r.bar != nil {
			r.bar.SetCurrent(p.BytesSent)
		}
	case instagram.StepCover:
		r.status.Store("🖼  Cover")
	case instagram.StepConfigure:
		r.status.Store("⚙️  Configuring")
	case instagram.StepDone:
		r.status.Store("✅ Published")
		if r.bar != nil {
			r.bar.SetTotal(-1, true)
		}
	}
}

func (r *CLIReporter) newBar(total int64) *mpb.Bar {
	return r.progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				return fmt.Sprintf("%-15s", r.status.Load())
			}, decor.WCSyncSpaceR),
			decor.Counters(decor.SizeB1024(0), "% .2f / % .2f", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.AverageSpeed(decor.SizeB1024(0), "% .2f", decor.WCSyncSpace),
			decor.Name(" | "),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO), "✨ Done!",
			),
		),
	)
}

// Wait flushes the bar. A bar left incomplete by a failed upload is aborted
// so Wait does not block.
func (r *CLIReporter) Wait() {
	r.mu.Lock()
	if r.bar != nil && !r.bar.Completed() {
		r.bar.Abort(false)
	}
	r.mu.Unlock()

	r.progress.Wait()
}
