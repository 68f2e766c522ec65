package coursera

import (
	"errors"
	"fmt"
	"strings"

	"coursera-sync/internal/domain"

	"github.com/tidwall/gjson"
)

var (
	// ErrMissingField means an expected key was absent; the whole response
	// is discarded rather than returning a partial record.
	ErrMissingField   = errors.New("coursera: missing field")
	ErrCourseNotFound = errors.New("coursera: no course found")
	ErrInvalidJSON    = errors.New("coursera: invalid json")
)

const (
	descriptionLimit = 100
	skillsLimit      = 5
)

// ExtractBasicInfo flattens a raw CDPPageQuery response. It never panics;
// the first missing expected key aborts extraction with ErrMissingField.
func ExtractBasicInfo(raw []byte) (*domain.CourseDetail, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(raw)

	elements, err := list(doc, "data.XdpV1Resource.slug.elements")
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, ErrCourseNotFound
	}

	meta, err := field(elements[0], "xdpMetadata.cdpMetadata")
	if err != nil {
		return nil, err
	}

	name, err := field(meta, "name")
	if err != nil {
		return nil, err
	}
	description, err := field(meta, "description")
	if err != nil {
		return nil, err
	}
	level, err := field(meta, "level")
	if err != nil {
		return nil, err
	}
	workload, err := field(meta, "workload")
	if err != nil {
		return nil, err
	}
	skills, err := list(meta, "skills")
	if err != nil {
		return nil, err
	}
	partners, err := listOf(meta, "partners", "name")
	if err != nil {
		return nil, err
	}
	instructors, err := listOf(meta, "instructors", "fullName")
	if err != nil {
		return nil, err
	}

	rating, ratingCount := domain.NotAvailable, domain.NotAvailable
	if ratings := meta.Get("ratings"); ratings.Exists() && ratings.Type != gjson.Null {
		avg, err := field(ratings, "averageFiveStarRating")
		if err != nil {
			return nil, err
		}
		count, err := field(ratings, "ratingCount")
		if err != nil {
			return nil, err
		}
		rating, ratingCount = avg.String(), count.String()
	}

	return &domain.CourseDetail{
		Name:        name.String(),
		Description: truncateDescription(description.String()),
		Level:       level.String(),
		Workload:    workload.String(),
		Skills:      summarizeSkills(skills),
		Partners:    partners,
		Instructors: instructors,
		Rating:      rating,
		RatingCount: ratingCount,
	}, nil
}

func field(r gjson.Result, path string) (gjson.Result, error) {
	v := r.Get(path)
	if !v.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrMissingField, path)
	}
	return v, nil
}

func list(r gjson.Result, path string) ([]gjson.Result, error) {
	v, err := field(r, path)
	if err != nil {
		return nil, err
	}
	if !v.IsArray() {
		return nil, fmt.Errorf("%w: %s is not a list", ErrMissingField, path)
	}
	return v.Array(), nil
}

// listOf collects key from every object in the list at path.
func listOf(r gjson.Result, path, key string) ([]string, error) {
	items, err := list(r, path)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		v, err := field(it, key)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", path, i, err)
		}
		out = append(out, v.String())
	}
	return out, nil
}

func truncateDescription(s string) string {
	if s == "" {
		return domain.NotAvailable
	}
	runes := []rune(s)
	if len(runes) <= descriptionLimit {
		return s
	}
	return string(runes[:descriptionLimit]) + "..."
}

func summarizeSkills(skills []gjson.Result) string {
	names := make([]string, 0, len(skills))
	for _, s := range skills {
		names = append(names, s.String())
	}
	if len(names) > skillsLimit {
		return strings.Join(names[:skillsLimit], ", ") + "..."
	}
	return strings.Join(names, ", ")
}
