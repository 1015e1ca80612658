package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimestampRejectsNonUtc(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	_, err = NewTimestamp(time.Now().In(loc))
	assert.ErrorIs(t, err, ErrTimestampNotUtc)
}

func TestNewTimestampAcceptsUtc(t *testing.T) {
	ts, err := NewTimestamp(time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, ts.IsZero())
}
