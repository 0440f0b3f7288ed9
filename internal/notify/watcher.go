// Package notify watches the graph file for changes and dispatches a
// debounced callback. The HTTP surface uses it to push change events to
// connected websocket clients, including changes made by other processes
// sharing the data directory.
package notify

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the write/rename burst produced by one atomic
// save into a single callback.
const debounceWindow = 200 * time.Millisecond

// GraphWatcher watches the graph file and invokes a callback after each
// settled change.
type GraphWatcher struct {
	path     string
	callback func()
	watcher  *fsnotify.Watcher
	done     chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewGraphWatcher creates a watcher for the given graph file path.
func NewGraphWatcher(path string, callback func()) *GraphWatcher {
	return &GraphWatcher{
		path:     path,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched rather than the
// file itself: saves go through a temp file and rename, which replaces the
// inode a file watch would be pinned to. Call Stop to clean up.
func (gw *GraphWatcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(gw.path)); err != nil {
		_ = w.Close()
		return err
	}
	gw.watcher = w

	go gw.loop()
	log.Printf("notify: watching %s for graph changes", gw.path)
	return nil
}

// Stop shuts down the watcher and waits for the loop to exit.
func (gw *GraphWatcher) Stop() {
	if gw.watcher != nil {
		_ = gw.watcher.Close()
	}
	<-gw.done

	gw.mu.Lock()
	if gw.timer != nil {
		gw.timer.Stop()
	}
	gw.mu.Unlock()
}

func (gw *GraphWatcher) loop() {
	defer close(gw.done)
	for {
		select {
		case evt, ok := <-gw.watcher.Events:
			if !ok {
				return
			}
			if evt.Name != gw.path {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				gw.schedule()
			}
		case err, ok := <-gw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

// schedule arms (or re-arms) the debounce timer.
func (gw *GraphWatcher) schedule() {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.timer != nil {
		gw.timer.Stop()
	}
	gw.timer = time.AfterFunc(debounceWindow, gw.callback)
}
