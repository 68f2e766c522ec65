package devutil

import (
	"reflect"
	"testing"

	"coursera-sync/internal/domain"
)

func sampleCourse() domain.CourseSummary {
	return domain.CourseSummary{
		ID:           "c1",
		Name:         "Machine Learning",
		Slug:         "machine-learning",
		Description:  "Build ML models with NumPy and scikit-learn",
		PartnerNames: []string{"Stanford University"},
		Rating:       "4.9",
	}
}

func TestPick(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		keys     []string
		expected map[string]any
	}{
		{
			name:  "Pick from course",
			input: sampleCourse(),
			keys:  []string{"name", "slug"},
			expected: map[string]any{
				"name": "Machine Learning",
				"slug": "machine-learning",
			},
		},
		{
			name:  "Pick from map",
			input: map[string]any{"id": "c2", "count": 25},
			keys:  []string{"count"},
			expected: map[string]any{
				"count": float64(25), // JSON numbers decode as float64
			},
		},
		{
			name:     "Pick from nil",
			input:    nil,
			keys:     []string{"name"},
			expected: map[string]any{},
		},
		{
			name:     "Pick non-existent keys",
			input:    sampleCourse(),
			keys:     []string{"nonexistent"},
			expected: map[string]any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Pick(tc.input, tc.keys...)
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Pick() = %v, want %v", result, tc.expected)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	got := Preview(sampleCourse(), 10, "slug", "name", "description", "partnerNames", "missing")
	want := "slug: machine-learning\n" +
		"name: Machine Learning\n" +
		"description: Build ML m...\n" +
		"partnerNames:\n" +
		"    - Stanford University"
	if got != want {
		t.Errorf("Preview() =\n%s\nwant\n%s", got, want)
	}
}

func TestPreviewEmpty(t *testing.T) {
	if got := Preview(nil, 0, "name"); got != "" {
		t.Errorf("Preview(nil) = %q, want empty", got)
	}
}
