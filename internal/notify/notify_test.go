package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogWritesPipelineAndError(t *testing.T) {
	var buf bytes.Buffer
	l := Log{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	l.Notify(t.Context(), "build:sass", errors.New("Undefined variable"))

	out := buf.String()
	assert.Contains(t, out, "pipeline=build:sass")
	assert.Contains(t, out, `error="Undefined variable"`)
}

func TestDesktopFormatsMessage(t *testing.T) {
	var title, message string
	d := &Desktop{Title: "Build error", send: func(ti, m string) error {
		title, message = ti, m
		return errors.New("no notification daemon")
	}}

	d.Notify(t.Context(), "build:js", errors.New("unexpected token"))
	assert.Equal(t, "Build error", title)
	assert.Equal(t, "build:js: unexpected token", message)
}

type counter struct{ n int }

func (c *counter) Notify(context.Context, string, error) { c.n++ }

func TestMultiFansOut(t *testing.T) {
	a, b := &counter{}, &counter{}
	Multi{a, b}.Notify(t.Context(), "x", errors.New("e"))
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
