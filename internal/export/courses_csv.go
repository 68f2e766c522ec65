package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coursera-sync/internal/domain"
)

// ErrNoCourses is returned instead of writing an empty export.
var ErrNoCourses = errors.New("export: no courses to convert to CSV")

// Keep header order EXACT.
var coursesHeader = []string{
	"id",
	"name",
	"slug",
	"description",
	"learning_hours",
	"partners",
	"skills",
	"rating",
}

// CoursesFileName derives the export name from the extraction time so runs
// never overwrite each other.
func CoursesFileName(now time.Time) string {
	return fmt.Sprintf("coursera_courses_%s.csv", now.Format("20060102_150405"))
}

// WriteCoursesCSV writes one row per course. Line breaks in descriptions are
// collapsed so every record stays on a single line.
func WriteCoursesCSV(w io.Writer, courses []domain.CourseSummary) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(coursesHeader); err != nil {
		return err
	}
	for _, c := range courses {
		if err := cw.Write(toRow(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCoursesCSV writes courses to a timestamped file in dir and returns
// its path. Empty input writes nothing and returns ErrNoCourses.
func ExportCoursesCSV(dir string, courses []domain.CourseSummary, now time.Time) (string, error) {
	if len(courses) == 0 {
		return "", ErrNoCourses
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create output dir: %w", err)
	}

	path := filepath.Join(dir, CoursesFileName(now))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("export: create %s: %w", path, err)
	}

	if err := WriteCoursesCSV(f, courses); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("export: write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("export: close %s: %w", path, err)
	}
	return path, nil
}

func toRow(c domain.CourseSummary) []string {
	return []string{
		c.ID,                               // id
		c.Name,                             // name
		c.Slug,                             // slug
		singleLine(c.Description),          // description
		c.LearningHours,                    // learning_hours
		strings.Join(c.PartnerNames, ", "), // partners
		strings.Join(c.Skills, ", "),       // skills
		c.Rating,                           // rating
	}
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}
