package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp(t *testing.T) {
	ts := FromUnix(1700000000)
	b, err := ts.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "1700000000", string(b))
	ts2 := New()
	require.NoError(t, ts2.UnmarshalJSON(b))
	assert.Equal(t, *ts, *ts2)
	assert.Equal(t, time.Unix(1700000000, 0), ts2.Time())
	assert.Error(t, ts2.UnmarshalJSON([]byte("1.5")))
	var nilT *T
	assert.Equal(t, "0", nilT.String())
	assert.WithinDuration(t, time.Now(), Now().Time(), 2*time.Second)
}
