package coursera

import (
	"context"
	"net/url"

	"coursera-sync/internal/domain"
	"coursera-sync/internal/providers"
)

// Provider adapts CatalogClient into the providers.CourseProvider interface.
type Provider struct {
	C      *CatalogClient
	Limit  int
	Params url.Values
}

func (p Provider) Name() string { return "coursera" }

// ListCourses never fails: extraction degrades to an empty list.
func (p Provider) ListCourses(ctx context.Context) ([]domain.CourseSummary, error) {
	return p.C.ExtractCourses(ctx, p.Limit, p.Params), nil
}

var _ providers.CourseProvider = Provider{}
