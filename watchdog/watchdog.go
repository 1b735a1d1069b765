// Package watchdog implements the thermal-semaphore poller: a ticker that
// watches for the presence of a user-touchable file and reports transitions
// to a callback. It does not read any real temperature sensor.
package watchdog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSemaphoreFile is used when $HOME cannot be resolved.
const DefaultSemaphoreFile = "/home/tux/.temperatureTooHigh"

// semaphoreFileName is the basename checked under $HOME.
const semaphoreFileName = ".temperatureTooHigh"

// checkInterval is how often the file's presence is sampled.
const checkInterval = 500 * time.Millisecond

// SemaphorePath returns $HOME/.temperatureTooHigh, falling back to
// DefaultSemaphoreFile if HOME is unset.
func SemaphorePath() string {
	home := os.Getenv("HOME")
	if home == "" {
		return DefaultSemaphoreFile
	}
	return home + "/" + semaphoreFileName
}

// Watchdog polls a semaphore file's existence on a ticker and invokes a
// callback only on state transitions (not on every tick).
type Watchdog struct {
	path     string
	onChange func(tooHigh bool)
	log      zerolog.Logger

	stopCh chan struct{}
	done   chan struct{}
}

// New builds a Watchdog against path.
func New(path string, onChange func(tooHigh bool), log zerolog.Logger) *Watchdog {
	return &Watchdog{path: path, onChange: onChange, log: log}
}

// Start begins polling on its own goroutine.
func (w *Watchdog) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.loop()
}

// Stop signals the polling goroutine to exit and waits for it.
func (w *Watchdog) Stop() {
	close(w.stopCh)
	<-w.done
}

func (w *Watchdog) loop() {
	defer close(w.done)

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	last := w.fileExists()
	w.log.Debug().Bool("tooHigh", last).Str("path", w.path).Msg("thermal watchdog starting")

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			current := w.fileExists()
			if current != last {
				last = current
				w.log.Info().Bool("tooHigh", current).Msg("thermal state changed")
				if w.onChange != nil {
					w.onChange(current)
				}
			}
		}
	}
}

func (w *Watchdog) fileExists() bool {
	_, err := os.Stat(w.path)
	return err == nil
}
