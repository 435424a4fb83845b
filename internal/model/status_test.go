package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatus_NextPrev(t *testing.T) {
	tests := []struct {
		status   Status
		next     Status
		nextOK   bool
		prev     Status
		prevOK   bool
		position int
	}{
		{StatusTodo, StatusInProgress, true, StatusTodo, false, 0},
		{StatusInProgress, StatusReview, true, StatusTodo, true, 1},
		{StatusReview, StatusDone, true, StatusInProgress, true, 2},
		{StatusDone, StatusDone, false, StatusReview, true, 3},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			next, ok := tt.status.Next()
			assert.Equal(t, tt.nextOK, ok)
			assert.Equal(t, tt.next, next)

			prev, ok := tt.status.Prev()
			assert.Equal(t, tt.prevOK, ok)
			assert.Equal(t, tt.prev, prev)

			assert.Equal(t, tt.position, tt.status.Index())
		})
	}
}

func TestStatus_Unknown(t *testing.T) {
	s := Status("archived")
	assert.False(t, s.IsValid())
	assert.Equal(t, -1, s.Index())
	_, ok := s.Next()
	assert.False(t, ok)
	_, ok = s.Prev()
	assert.False(t, ok)
	assert.Equal(t, "archived", s.Display())
}

func TestAllStatuses_IsACopy(t *testing.T) {
	all := AllStatuses()
	all[0] = StatusDone
	assert.Equal(t, StatusTodo, AllStatuses()[0])
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("HIGH"))
	assert.Equal(t, PriorityLow, ParsePriority("low"))
	assert.Equal(t, PriorityMedium, ParsePriority(""))
	assert.Equal(t, PriorityMedium, ParsePriority("urgent"))
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	task := NewTask("Report", TeamMember{ID: "u1", DisplayName: "alice"}, now)
	assert.False(t, task.IsOverdue(now))

	task.DueDate = &past
	assert.True(t, task.IsOverdue(now))

	task.Status = StatusDone
	assert.False(t, task.IsOverdue(now))

	task.Status = StatusTodo
	task.DueDate = &future
	assert.False(t, task.IsOverdue(now))
}

func TestProject_HasMember(t *testing.T) {
	p := Project{MemberIDs: []string{"a", "b"}}
	assert.True(t, p.HasMember("b"))
	assert.False(t, p.HasMember("c"))
	assert.False(t, p.IsCompleted())
}
