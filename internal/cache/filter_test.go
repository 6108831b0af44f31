package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/service"
)

func TestFilter_Apply(t *testing.T) {
	tasks := []service.Task{
		{ID: "1", Priority: service.PriorityHigh, Completed: true, Categories: []string{"Work Projects"}},
		{ID: "2", Priority: service.PriorityHigh, Categories: []string{"Work Projects", "Urgent Projects"}},
		{ID: "3", Priority: service.PriorityLow, Categories: []string{"Personal Projects"}},
		{ID: "4", Priority: service.PriorityHigh},
	}

	tests := []struct {
		name string
		f    Filter
		want []string
	}{
		{"zero matches all", Filter{}, []string{"1", "2", "3", "4"}},
		{"pending", Filter{Status: StatusPending}, []string{"2", "3", "4"}},
		{"completed", Filter{Status: StatusCompleted}, []string{"1"}},
		{"category", Filter{Category: "Work Projects"}, []string{"1", "2"}},
		{"category is exact", Filter{Category: "work projects"}, []string{}},
		{"priority", Filter{Priority: service.PriorityHigh}, []string{"1", "2", "4"}},
		{"all three", Filter{Status: StatusPending, Category: "Work Projects", Priority: service.PriorityHigh}, []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.f.Apply(tasks)
			ids := make([]string, 0, len(got))
			for _, task := range got {
				ids = append(ids, task.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"":          StatusAll,
		"all":       StatusAll,
		"Pending":   StatusPending,
		"completed": StatusCompleted,
		"done":      StatusCompleted,
	} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("someday")
	assert.Error(t, err)
}

func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, Stats{}, ComputeStats(nil))
}
