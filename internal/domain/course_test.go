package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseDetailJSONFieldNames(t *testing.T) {
	d := CourseDetail{
		Name:        "Machine Learning",
		Rating:      NotAvailable,
		RatingCount: NotAvailable,
		Partners:    []string{"Stanford University"},
	}

	b, err := json.Marshal(d)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, k := range []string{"name", "description", "level", "workload", "skills", "partners", "instructors", "rating", "ratingCount"} {
		assert.Contains(t, m, k)
	}
	assert.Equal(t, "N/A", m["ratingCount"])
}

func TestParseResponseShape(t *testing.T) {
	testCases := []struct {
		input    string
		expected ResponseShape
	}{
		{"", ShapeAuto},
		{"auto", ShapeAuto},
		{"elements", ShapeElements},
		{"ELEMENTS", ShapeElements},
		{" linked ", ShapeLinked},
		{"initialState", ShapeInitialState},
		{"initial_state", ShapeInitialState},
	}

	for _, tc := range testCases {
		got, err := ParseResponseShape(tc.input)
		require.NoError(t, err, tc.input)
		assert.Equal(t, tc.expected, got, tc.input)
	}

	_, err := ParseResponseShape("xml")
	assert.Error(t, err)
}
