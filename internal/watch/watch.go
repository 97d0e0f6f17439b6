// Package watch dispatches filesystem changes to task runners.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// Trigger requests a run of a task. *pipeline.Runner satisfies it.
type Trigger interface {
	Trigger(ctx context.Context)
}

// Rule binds a watch glob, relative to the project root, to a task.
type Rule struct {
	Glob   string
	Task   string
	Runner Trigger
}

// Watcher watches the directories under each rule's glob base.
type Watcher struct {
	root   string
	rules  []Rule
	fsw    *fsnotify.Watcher
	logger *slog.Logger
}

// New validates the rules and starts watching their directories.
func New(root string, rules ...Rule) (*Watcher, error) {
	for _, r := range rules {
		if !doublestar.ValidatePattern(r.Glob) {
			return nil, ferrors.ValidationError("invalid watch glob").
				WithContext("glob", r.Glob).
				WithContext("task", r.Task).
				Build()
		}
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to create watcher").Build()
	}
	w := &Watcher{root: root, rules: rules, fsw: fsw, logger: slog.Default()}

	seen := map[string]bool{}
	for _, r := range rules {
		base, _ := doublestar.SplitPattern(r.Glob)
		dir := existingAncestor(filepath.Join(root, filepath.FromSlash(base)), root)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		w.addDirsRecursive(dir)
	}
	return w, nil
}

func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	if l != nil {
		w.logger = l
	}
	return w
}

// Run dispatches events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()
	w.logger.Info("Watching for changes", slog.Int("rules", len(w.rules)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(ev.Name)
		}
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}
	for _, r := range w.Match(filepath.ToSlash(rel)) {
		w.logger.Debug("File change detected", logfields.Path(rel), logfields.Task(r.Task), slog.String("op", ev.Op.String()))
		r.Runner.Trigger(ctx)
	}
}

// Match returns the rules whose glob matches the slash-separated path,
// one per task.
func (w *Watcher) Match(rel string) []Rule {
	rel = strings.TrimPrefix(rel, "./")
	var out []Rule
	tasks := map[string]bool{}
	for _, r := range w.rules {
		if tasks[r.Task] {
			continue
		}
		if ok, _ := doublestar.Match(strings.TrimPrefix(r.Glob, "./"), rel); ok {
			tasks[r.Task] = true
			out = append(out, r)
		}
	}
	return out
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && shouldIgnoreEvent(path) {
				return filepath.SkipDir
			}
			if err := w.fsw.Add(path); err != nil {
				w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// existingAncestor walks dir up to the first existing directory, stopping
// at root. Directories created later are picked up from Create events.
func existingAncestor(dir, root string) string {
	for {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if dir == root || parent == dir {
			return dir
		}
		dir = parent
	}
}

// shouldIgnoreEvent reports hidden files, editor swap files and OS metadata.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
