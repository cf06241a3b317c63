package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher invokes a callback whenever the config file is written, so
// edits made outside the applet (another editor, a dotfile sync) take
// effect without a restart.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     zerolog.Logger
}

// Watch starts watching the config file's directory. onChange runs on
// the watcher goroutine for every write or create of the config file.
func Watch(onChange func(), log zerolog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	path := Path()
	// Watch the directory, not the file: editors replace files, which
	// drops a watch held on the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{watcher: watcher, log: log}
	go w.loop(path, onChange)
	return w, nil
}

// Close stops the file watcher.
func (w *Watcher) Close() {
	w.watcher.Close()
}

func (w *Watcher) loop(path string, onChange func()) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name == path && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				w.log.Debug().Str("path", path).Msg("Config file changed on disk")
				onChange()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("Config watcher error")
		}
	}
}
