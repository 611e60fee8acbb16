package main

import (
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileMode(t *testing.T) {
	assert.Nil(t, profileMode(""))
	assert.Nil(t, profileMode("bogus"))
	for _, m := range []string{"cpu", "MEM", "allocs", "block", "mutex", "goroutine", "trace"} {
		assert.NotNil(t, profileMode(m), m)
	}
}

func TestParseSubcommands(t *testing.T) {
	var a args
	p, err := arg.NewParser(arg.Config{}, &a)
	require.NoError(t, err)
	require.NoError(t, p.Parse([]string{"publish", "-t", "Hello", "post.md"}))
	require.NotNil(t, a.Publish)
	assert.Equal(t, "Hello", a.Publish.Title)
	assert.Equal(t, "post.md", a.Publish.File)
	_, ok := p.Subcommand().(command)
	assert.True(t, ok)

	a = args{}
	p, err = arg.NewParser(arg.Config{}, &a)
	require.NoError(t, err)
	require.NoError(t, p.Parse([]string{"feed", "-f", "npub1a", "npub1b"}))
	require.NotNil(t, a.Feed)
	assert.True(t, a.Feed.Follow)
	assert.Equal(t, []string{"npub1a", "npub1b"}, a.Feed.Authors)

	a = args{}
	p, err = arg.NewParser(arg.Config{}, &a)
	require.NoError(t, err)
	assert.Error(t, p.Parse([]string{"note"}))
}
