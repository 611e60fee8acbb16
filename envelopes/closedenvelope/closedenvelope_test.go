package closedenvelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"longform.lol/envelopes"
	"longform.lol/normalize"
	"longform.lol/subscriptionid"
)

func TestRoundTrip(t *testing.T) {
	b, err := NewFrom(subscriptionid.MustNew("s"), normalize.AuthRequired.F("members only")).Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, `["CLOSED","s","auth-required: members only"]`, string(b))
	_, fields, err := envelopes.Identify(b)
	require.NoError(t, err)
	c, err := Parse(fields)
	require.NoError(t, err)
	assert.True(t, normalize.AuthRequired.IsPrefix(c.Reason))
}
