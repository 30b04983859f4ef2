package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"EditorInfo", &EditorInfo{}, "editor_infos"},
		{"RouteRecord", &RouteRecord{}, "routes"},
		{"RoutePointRecord", &RoutePointRecord{}, "route_points"},
		{"SessionPerformance", &SessionPerformance{}, "session_performances"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModelListsAgree(t *testing.T) {
	assert.Equal(t, len(DatabaseModels), len(DatabaseModelsSQLite))
}
