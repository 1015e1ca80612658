package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockNowReturnsCreationTime(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)
	assert.Equal(t, start, c.Now())
}

func TestManualClockAfterFiresOnceDeadlinePasses(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewManualClock(start)

	ch := c.After(5 * time.Second)

	select {
	case <-ch:
		t.Fatal("should not have fired before the deadline")
	default:
	}

	c.Advance(3 * time.Second)
	select {
	case <-ch:
		t.Fatal("should not have fired before the full duration elapsed")
	default:
	}

	c.Advance(3 * time.Second)
	select {
	case fired := <-ch:
		assert.True(t, fired.Equal(start.Add(6*time.Second)))
	default:
		t.Fatal("expected the channel to fire once the deadline passed")
	}
}

func TestManualClockAfterZeroFiresImmediately(t *testing.T) {
	c := NewManualClock(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	ch := c.After(0)
	select {
	case <-ch:
	default:
		t.Fatal("zero-duration After should fire immediately")
	}
}
