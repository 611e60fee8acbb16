package eventenvelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/envelopes"
	"longform.lol/event"
	"longform.lol/kind"
	"longform.lol/p256k"
	"longform.lol/tag"
	"longform.lol/tags"
	"longform.lol/timestamp"
)

func signed(t *testing.T) *event.T {
	s := &p256k.Signer{}
	require.NoError(t, s.Generate())
	ev := &event.T{
		CreatedAt: timestamp.Now(),
		Kind:      kind.TextNote,
		Tags:      tags.New(tag.New("t", "test")),
		Content:   []byte("hello\nrelay"),
	}
	require.NoError(t, ev.Sign(s))
	return ev
}

func TestSubmission(t *testing.T) {
	ev := signed(t)
	b, err := NewSubmissionWith(ev).Marshal(nil)
	require.NoError(t, err)
	l, fields, err := envelopes.Identify(b)
	require.NoError(t, err)
	assert.Equal(t, L, l)
	sub, err := ParseSubmission(fields)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, sub.ID)
	valid, err := sub.Verify()
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestResult(t *testing.T) {
	ev := signed(t)
	b, err := NewResultWith("sub1", ev).Marshal(nil)
	require.NoError(t, err)
	l, fields, err := envelopes.Identify(b)
	require.NoError(t, err)
	assert.Equal(t, L, l)
	res, err := ParseResult(fields)
	require.NoError(t, err)
	assert.Equal(t, "sub1", res.Subscription.String())
	assert.Equal(t, ev.Sig, res.Event.Sig)

	_, err = ParseResult(fields[:1])
	assert.Error(t, err)
}
