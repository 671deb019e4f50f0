package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2025, 12, 1, 5, 0, 0, 0, time.UTC)

func TestManual_Now(t *testing.T) {
	c := NewManual(start)
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), c.Now())
}

func TestManual_AfterFiresOnlyWhenDue(t *testing.T) {
	c := NewManual(start)
	ch := c.After(time.Hour)
	assert.Equal(t, 1, c.Waiters())

	c.Advance(59 * time.Minute)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}

	c.Advance(time.Minute)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(time.Hour), got)
	default:
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, 0, c.Waiters())
}

func TestManual_AfterNonPositiveFiresImmediately(t *testing.T) {
	c := NewManual(start)
	select {
	case got := <-c.After(0):
		assert.Equal(t, start, got)
	default:
		t.Fatal("zero duration timer should fire immediately")
	}
}

func TestManual_SetBackwardsFiresNothing(t *testing.T) {
	c := NewManual(start)
	ch := c.After(time.Minute)

	c.Set(start.Add(-time.Hour))
	select {
	case <-ch:
		t.Fatal("timer fired when clock moved backwards")
	default:
	}
	assert.Equal(t, 1, c.Waiters())
}

func TestReal(t *testing.T) {
	var c Clock = Real{}
	before := time.Now()
	assert.False(t, c.Now().Before(before))

	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
