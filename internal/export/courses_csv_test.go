package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coursera-sync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCourses() []domain.CourseSummary {
	return []domain.CourseSummary{
		{
			ID:            "c1",
			Name:          "Machine Learning",
			Slug:          "machine-learning",
			Description:   "Line one\nline two\r\nline three",
			PartnerNames:  []string{"Stanford University", "DeepLearning.AI"},
			Skills:        []string{"Regression", "Classification"},
			LearningHours: "61",
			Rating:        "4.9",
		},
		{
			ID:   "c2",
			Name: "Python, for Everybody",
			Slug: "python",
		},
	}
}

func TestCoursesFileName(t *testing.T) {
	now := time.Date(2025, 3, 7, 9, 5, 2, 0, time.UTC)
	assert.Equal(t, "coursera_courses_20250307_090502.csv", CoursesFileName(now))
}

func TestWriteCoursesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCoursesCSV(&buf, testCourses()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3, "one line per record plus header")
	assert.Equal(t, "id,name,slug,description,learning_hours,partners,skills,rating", lines[0])
	assert.Equal(t, `c1,Machine Learning,machine-learning,Line one line two  line three,61,"Stanford University, DeepLearning.AI","Regression, Classification",4.9`, lines[1])
	assert.Equal(t, `c2,"Python, for Everybody",python,,,,,`, lines[2])

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Python, for Everybody", records[2][1])
}

func TestExportCoursesCSV(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

	path, err := ExportCoursesCSV(dir, testCourses(), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "coursera_courses_20250102_030405.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, coursesHeader, records[0])
	assert.Equal(t, "Stanford University, DeepLearning.AI", records[1][5])
}

func TestExportCoursesCSVEmpty(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportCoursesCSV(dir, nil, time.Now())
	assert.ErrorIs(t, err, ErrNoCourses)
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file must be written")
}

func TestWriteDetailsJSON(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteDetailsJSON(dir, "machine-learning", []byte(`{"data":{"a":1}}`))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "machine-learning_details.json"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"data\": {\n    \"a\": 1\n  }\n}\n", string(b))

	_, err = WriteDetailsJSON(dir, "../escape", []byte(`{}`))
	assert.Error(t, err)

	_, err = WriteDetailsJSON(dir, "python", []byte(`not json`))
	assert.Error(t, err)
}
