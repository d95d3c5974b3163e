package cli

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// scenarioWatcher reports changes to a single scenario file. Editors
// replace files on save rather than writing in place, so it watches the
// parent directory and filters events down to the one base name.
type scenarioWatcher struct {
	path    string
	changes chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

func newScenarioWatcher(path string) (*scenarioWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &scenarioWatcher{
		path:    path,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
		watcher: fw,
	}
	go w.loop()
	return w, nil
}

// Changes returns the channel that receives one token per settled change.
func (w *scenarioWatcher) Changes() <-chan struct{} { return w.changes }

// Stop closes the watcher and waits for the loop to exit.
func (w *scenarioWatcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *scenarioWatcher) loop() {
	defer close(w.done)

	// Debounce: a single save fires several events in quick succession.
	const debounce = 100 * time.Millisecond
	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	base := filepath.Base(w.path)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case _, ok := <-ticker.C:
			if !ok {
				return
			}
			if pending.IsZero() || time.Since(pending) < debounce {
				continue
			}
			pending = time.Time{}
			select {
			case w.changes <- struct{}{}:
			default:
				// A change token is already queued.
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next save still lands.
		}
	}
}
