package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanTrigger chan struct{}

func (c chanTrigger) Trigger(context.Context) {
	select {
	case c <- struct{}{}:
	default:
	}
}

func waitFor(t *testing.T, c chanTrigger) {
	t.Helper()
	select {
	case <-c:
	case <-time.After(5 * time.Second):
		t.Fatal("task was not triggered")
	}
}

func TestShouldIgnoreEvent(t *testing.T) {
	for _, p := range []string{"src/.hidden.html", "src/index.html~", "src/.index.html.swp", "src/x.swx", "src/#index.html#", "src/img/.DS_Store", "src/img/Thumbs.db"} {
		assert.True(t, shouldIgnoreEvent(p), p)
	}
	assert.False(t, shouldIgnoreEvent("src/index.html"))
}

func TestMatchOnePerTask(t *testing.T) {
	w := &Watcher{rules: []Rule{
		{Glob: "src/*.html", Task: "build:html"},
		{Glob: "src/scss/**/*.scss", Task: "build:sass"},
		{Glob: "src/img/**/*.*", Task: "build:img"},
		{Glob: "src/img/icons/*.*", Task: "build:img"},
	}}

	tasks := func(p string) []string {
		var out []string
		for _, r := range w.Match(p) {
			out = append(out, r.Task)
		}
		return out
	}
	assert.Equal(t, []string{"build:html"}, tasks("src/index.html"))
	assert.Equal(t, []string{"build:sass"}, tasks("src/scss/components/_sprite.scss"))
	assert.Equal(t, []string{"build:img"}, tasks("src/img/icons/home.png"))
	assert.Empty(t, tasks("src/partials/header.html"))
}

func TestInvalidGlob(t *testing.T) {
	_, err := New(t.TempDir(), Rule{Glob: "src/[", Task: "x"})
	require.Error(t, err)
}

func TestTriggersOnWriteAndNewDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "js"), 0o755))

	html, js := make(chanTrigger, 1), make(chanTrigger, 1)
	w, err := New(root,
		Rule{Glob: "src/*.html", Task: "build:html", Runner: html},
		Rule{Glob: "src/js/**/*.js", Task: "build:js", Runner: js},
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "index.html"), []byte("<p>"), 0o644))
	waitFor(t, html)

	nested := filepath.Join(root, "src", "js", "lib")
	require.NoError(t, os.Mkdir(nested, 0o755))
	// The new directory is registered asynchronously.
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, os.WriteFile(filepath.Join(nested, "util.js"), []byte("x"), 0o644))
		select {
		case <-js:
			cancel()
			require.NoError(t, <-done)
			return
		case <-time.After(100 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("nested script change was not detected")
		}
	}
}
