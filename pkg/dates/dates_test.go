package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("ambiguous numeric defaults month-first", func(t *testing.T) {
		got, ok := Parse("11/02/2025", false)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.November, 2, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("day-first dialect", func(t *testing.T) {
		got, ok := Parse("11/02/2025", true)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.February, 11, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("first component over 12 is the day", func(t *testing.T) {
		got, ok := Parse("25/03/2024", false)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("english month name", func(t *testing.T) {
		got, ok := Parse("October 31, 2024", false)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("spanish month name", func(t *testing.T) {
		got, ok := Parse("31 de octubre de 2024", false)
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, time.October, 31, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("iso", func(t *testing.T) {
		got, ok := Parse("2025-11-02", false)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, time.November, 2, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("two digit year", func(t *testing.T) {
		got, ok := Parse("05/01/25", false)
		require.True(t, ok)
		assert.Equal(t, 2025, got.Year())
	})

	t.Run("abbreviated month", func(t *testing.T) {
		got, ok := Parse("Oct 31, 2024", false)
		require.True(t, ok)
		assert.Equal(t, time.October, got.Month())
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, s := range []string{"", "payment due", "32/13/2024", "2024-02-30", "11/2025"} {
			_, ok := Parse(s, false)
			assert.False(t, ok, "expected %q to fail", s)
		}
	})
}

func TestClampDay(t *testing.T) {
	assert.Equal(t, 28, ClampDay(2025, time.February, 31))
	assert.Equal(t, 29, ClampDay(2024, time.February, 31))
	assert.Equal(t, 30, ClampDay(2025, time.April, 31))
	assert.Equal(t, 15, ClampDay(2025, time.April, 15))
	assert.Equal(t, 1, ClampDay(2025, time.April, 0))
}
