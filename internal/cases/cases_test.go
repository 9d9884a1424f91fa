package cases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPracticeAreaNames(t *testing.T) {
	t.Parallel()

	names := PracticeAreaNames()
	require.Len(t, names, len(PracticeAreas))
	assert.Equal(t, "Slip/Trip Fall", names[0])
	assert.Equal(t, "Other", names[len(names)-1])

	// stable order across calls
	assert.Equal(t, names, PracticeAreaNames())
}

func TestValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidPriority(PriorityLow))
	assert.True(t, ValidPriority(PriorityHigh))
	assert.False(t, ValidPriority("urgent"))
	assert.False(t, ValidPriority(""))

	assert.True(t, ValidStatus(StatusNew))
	assert.True(t, ValidStatus(StatusClosed))
	assert.False(t, ValidStatus(0))
	assert.False(t, ValidStatus(4))

	assert.True(t, ValidContactMethod("email"))
	assert.True(t, ValidContactMethod("phone"))
	assert.False(t, ValidContactMethod("fax"))
	assert.False(t, ValidContactMethod(""))
}

func TestCleanDescription(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain text stays", CleanDescription("plain text stays"))
	assert.Equal(t, "click me", CleanDescription(`<a href="https://evil.example">click me</a>`))
	assert.Equal(t, "", CleanDescription(`<script>alert("xss")</script>`))
}

func TestNewReference(t *testing.T) {
	t.Parallel()

	a, b := NewReference(), NewReference()
	assert.Len(t, a, 20)
	assert.NotEqual(t, a, b)
}

func TestStatusName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "New", StatusName(StatusNew))
	assert.Equal(t, "In Review", StatusName(StatusInReview))
	assert.Equal(t, "Closed", StatusName(StatusClosed))
	assert.Equal(t, "Unknown", StatusName(99))
}
