package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoosePromptTime_AlwaysInTheFuture(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		target := ChoosePromptTime(now, nil, nil)
		assert.True(t, target.After(now), "target %v is not after %v", target, now)
	}
}

func TestChoosePromptTime_MovesToTomorrowAfterTodaysPrompt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lastPrompt := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		target := ChoosePromptTime(now, &lastPrompt, nil)
		assert.True(t, target.After(now))
		assert.NotEqual(t, now.Day(), target.Day(), "a second prompt on the same day")
	}
}

func TestChoosePromptTime_YesterdaysPromptAllowsToday(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 5, 0, 0, time.UTC)
	lastPrompt := time.Date(2024, 5, 31, 23, 50, 0, 0, time.UTC)

	sameDay := false
	for i := 0; i < 200; i++ {
		target := ChoosePromptTime(now, &lastPrompt, nil)
		require.True(t, target.After(now))
		if sameUTCDay(target, now) {
			sameDay = true
		}
	}
	assert.True(t, sameDay, "early in the day most minutes are still available")
}

func TestChoosePromptTime_ExcludesUsedMinutes(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 30, 0, time.UTC)

	// Block everything except 18:45
	excluded := make(map[int]bool, 24*60)
	for minute := 0; minute < 24*60; minute++ {
		excluded[minute] = minute != 18*60+45
	}

	target := ChoosePromptTime(now, nil, excluded)
	assert.Equal(t, 18, target.Hour())
	assert.Equal(t, 45, target.Minute())
}

func TestChoosePromptTime_FullyExcludedStillPicksSomething(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	excluded := make(map[int]bool, 24*60)
	for minute := 0; minute < 24*60; minute++ {
		excluded[minute] = true
	}

	target := ChoosePromptTime(now, nil, excluded)
	assert.True(t, target.After(now))
}

func TestSameUTCDay(t *testing.T) {
	a := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	assert.True(t, sameUTCDay(a, b))
	assert.False(t, sameUTCDay(a, c))
}
