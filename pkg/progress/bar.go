package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar renders run progress as a terminal progress bar
type Bar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// NewBar creates a terminal progress notifier
func NewBar() *Bar {
	return &Bar{}
}

func (b *Bar) Started(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bar = progressbar.NewOptions(
		u.Total,
		progressbar.OptionSetDescription("Exporting objects"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
		progressbar.OptionSpinnerType(14),
	)
}

func (b *Bar) Progress(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Set(u.Processed)
	}
}

func (b *Bar) Completed(u Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Finish()
		b.bar = nil
	}
}
