package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/asset"
	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
)

type recordingNotifier struct {
	mu   sync.Mutex
	errs []error
}

func (n *recordingNotifier) Notify(_ context.Context, _ string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

type countingRecorder struct {
	metrics.NoopRecorder
	results []metrics.ResultLabel
}

func (r *countingRecorder) IncPipelineResult(_ string, l metrics.ResultLabel) {
	r.results = append(r.results, l)
}

func upper() Step {
	return Map("upper", func(_ context.Context, f *asset.File) (*asset.File, error) {
		cp := f.Clone()
		cp.Contents = []byte(strings.ToUpper(string(f.Contents)))
		return cp, nil
	})
}

func failing(msg string) Step {
	return Func("fail", func(context.Context, []*asset.File) ([]*asset.File, error) {
		return nil, ferrors.CompileError(msg).Build()
	})
}

func seed(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "src/a.txt", []byte("a"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "src/b.txt", []byte("b"), 0o644))
	return fs
}

func TestRunAppliesStepsInOrder(t *testing.T) {
	fs := seed(t)
	rec := &countingRecorder{}
	var hooked *Result

	p := New("test", fs, asset.Src("src/*.txt"), asset.Dest("dist"),
		upper(),
		When(false, failing("never")),
		Map("suffix", func(_ context.Context, f *asset.File) (*asset.File, error) {
			cp := f.Clone()
			cp.Contents = append(cp.Contents, '!')
			return cp, nil
		}),
	).WithRecorder(rec).OnWritten(func(_ context.Context, res *Result) { hooked = res })

	assert.Equal(t, []string{"upper", "suffix"}, p.Steps())

	res, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Read)
	assert.Equal(t, []string{"dist/a.txt", "dist/b.txt"}, res.Written)
	assert.NotEmpty(t, res.RunID)
	assert.Same(t, res, hooked)
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultSuccess}, rec.results)

	data, err := afero.ReadFile(fs, "dist/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "A!", string(data))
}

func TestBoundaryAbortsWithoutWriting(t *testing.T) {
	fs := seed(t)
	n := &recordingNotifier{}
	rec := &countingRecorder{}
	hooked := false

	p := New("style", fs, asset.Src("src/*.txt"), asset.Dest("dist"), upper(), failing("bad syntax")).
		WithBoundary(n).
		WithRecorder(rec).
		OnWritten(func(context.Context, *Result) { hooked = true })

	res, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.True(t, res.Aborted)
	require.Error(t, res.Err)
	assert.Empty(t, res.Written)
	assert.False(t, hooked)
	require.Len(t, n.errs, 1)
	assert.Contains(t, n.errs[0].Error(), "bad syntax")
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultAborted}, rec.results)

	exists, _ := afero.Exists(fs, "dist/a.txt")
	assert.False(t, exists)

	// a later successful run recovers
	p2 := New("style", fs, asset.Src("src/*.txt"), asset.Dest("dist"), upper()).WithBoundary(n)
	res, err = p2.Run(t.Context())
	require.NoError(t, err)
	assert.False(t, res.Aborted)
	assert.Len(t, res.Written, 2)
}

func TestStepFailureWithoutBoundaryPropagates(t *testing.T) {
	p := New("img", seed(t), asset.Src("src/*.txt"), asset.Dest("dist"), failing("broken"))
	_, err := p.Run(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryCompile))
}

func TestSourceErrorBypassesBoundary(t *testing.T) {
	n := &recordingNotifier{}
	p := New("js", afero.NewMemMapFs(), asset.Src("src/js/main.js"), asset.Dest("dist")).WithBoundary(n)
	_, err := p.Run(t.Context())
	require.Error(t, err)
	assert.Empty(t, n.errs)
}

func TestFilterCountsSkipped(t *testing.T) {
	p := New("img", seed(t), asset.Src("src/*.txt"), asset.Dest("dist"),
		Filter("changed", func(_ context.Context, f *asset.File) (bool, error) {
			return f.Path == "a.txt", nil
		}))
	res, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []string{"dist/a.txt"}, res.Written)
}

func TestRunHonoursCancellationBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := New("html", seed(t), asset.Src("src/*.txt"), asset.Dest("dist"),
		Func("cancel", func(_ context.Context, files []*asset.File) ([]*asset.File, error) {
			cancel()
			return files, nil
		}),
		upper(),
	)
	_, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunnerSerializesAndCoalesces(t *testing.T) {
	var (
		mu       sync.Mutex
		active   int
		maxSeen  int
		runs     int
		release  = make(chan struct{})
		started  = make(chan struct{}, 10)
	)
	r := NewRunner("build:sass", func(context.Context) error {
		mu.Lock()
		active++
		runs++
		if active > maxSeen {
			maxSeen = active
		}
		first := runs == 1
		mu.Unlock()

		started <- struct{}{}
		if first {
			<-release
		}

		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})

	r.Trigger(t.Context())
	<-started
	for range 5 {
		r.Trigger(t.Context())
	}
	close(release)
	r.Wait()

	assert.Equal(t, 2, runs, "burst during a run collapses into one follow-up")
	assert.Equal(t, 1, maxSeen)
}

func TestRunnerLogsFailureAndStaysUsable(t *testing.T) {
	calls := 0
	r := NewRunner("build:js", func(context.Context) error {
		calls++
		return errors.New("boom")
	})
	r.Trigger(t.Context())
	r.Wait()
	r.Trigger(t.Context())
	r.Wait()
	assert.Equal(t, 2, calls)
}

func TestRunnersWaitForEveryInFlightRun(t *testing.T) {
	var (
		mu      sync.Mutex
		done    []string
		release = make(chan struct{})
	)
	slow := func(name string) *Runner {
		return NewRunner(name, func(context.Context) error {
			<-release
			mu.Lock()
			done = append(done, name)
			mu.Unlock()
			return nil
		})
	}
	rs := Runners{slow("build:html"), slow("build:js")}
	for _, r := range rs {
		r.Trigger(t.Context())
	}

	waited := make(chan struct{})
	go func() {
		rs.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		t.Fatal("Wait returned while runs were in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-waited
	assert.ElementsMatch(t, []string{"build:html", "build:js"}, done)
}

func TestGraphPlanOrdersDependencies(t *testing.T) {
	g := NewGraph()
	noop := func(context.Context) error { return nil }
	require.NoError(t, g.Add("build:img", noop, "build:sprite"))
	require.NoError(t, g.Add("build:sprite", noop))
	require.NoError(t, g.Add("build:html", noop))
	require.Error(t, g.Add("build:html", noop))

	order, err := g.Plan("build:img")
	require.NoError(t, err)
	assert.Equal(t, []string{"build:sprite", "build:img"}, order)

	order, err = g.Plan("build:img", "build:html")
	require.NoError(t, err)
	assert.Equal(t, []string{"build:html", "build:sprite", "build:img"}, order)
}

func TestGraphRejectsCyclesAndUnknownDeps(t *testing.T) {
	noop := func(context.Context) error { return nil }

	g := NewGraph()
	require.NoError(t, g.Add("a", noop, "b"))
	require.NoError(t, g.Add("b", noop, "a"))
	_, err := g.Plan("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular")

	g = NewGraph()
	require.NoError(t, g.Add("a", noop, "missing"))
	_, err = g.Plan("a")
	require.Error(t, err)

	_, err = g.Run(t.Context(), "nope")
	require.Error(t, err)
}

func TestGraphFailureSkipsOnlyDependents(t *testing.T) {
	var mu sync.Mutex
	ran := map[string]bool{}
	mark := func(name string, err error) TaskFunc {
		return func(context.Context) error {
			mu.Lock()
			ran[name] = true
			mu.Unlock()
			return err
		}
	}

	g := NewGraph()
	require.NoError(t, g.Add("build:sprite", mark("build:sprite", errors.New("bad icon"))))
	require.NoError(t, g.Add("build:img", mark("build:img", nil), "build:sprite"))
	require.NoError(t, g.Add("build:fonts", mark("build:fonts", nil)))

	report, err := g.Run(t.Context(), "build:img", "build:fonts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad icon")

	assert.Equal(t, TaskFailed, report["build:sprite"].State)
	assert.Equal(t, TaskSkipped, report["build:img"].State)
	assert.Equal(t, TaskSucceeded, report["build:fonts"].State)
	assert.False(t, ran["build:img"])
	assert.True(t, ran["build:fonts"])
	assert.Equal(t, []string{"build:img", "build:sprite"}, report.Failed())
}

func TestGraphRunsIndependentTasksConcurrently(t *testing.T) {
	both := make(chan struct{}, 2)
	wait := func(context.Context) error {
		both <- struct{}{}
		deadline := time.After(2 * time.Second)
		for len(both) < 2 {
			select {
			case <-deadline:
				return errors.New("peer never started")
			case <-time.After(time.Millisecond):
			}
		}
		return nil
	}
	g := NewGraph()
	require.NoError(t, g.Add("a", wait))
	require.NoError(t, g.Add("b", wait))
	_, err := g.Run(t.Context(), "a", "b")
	require.NoError(t, err)
}
