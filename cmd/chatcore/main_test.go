package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrarejimmyz/chatcore"
)

func TestREPL(t *testing.T) {
	cc := chatcore.New(func(o *chatcore.Options) { o.StreamPace = 0 })
	in := strings.NewReader("hello\n/history\n/clear\n/history\n/exit\n")
	var out bytes.Buffer

	require.NoError(t, repl(context.Background(), cc, "t1", in, &out))

	s := out.String()
	assert.Contains(t, s, "(fallback, confidence 0.50)")
	assert.Contains(t, s, "[user] hello")
	assert.Contains(t, s, "history cleared")

	history, err := cc.GetHistory(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestREPL_EOF(t *testing.T) {
	cc := chatcore.New()
	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), cc, "t2", strings.NewReader(""), &out))
}
