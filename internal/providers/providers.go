package providers

import (
	"context"

	"coursera-sync/internal/domain"
)

// CourseProvider lists course summaries from one platform. An empty result
// with a nil error means the provider ran and found nothing.
type CourseProvider interface {
	Name() string
	ListCourses(ctx context.Context) ([]domain.CourseSummary, error)
}
