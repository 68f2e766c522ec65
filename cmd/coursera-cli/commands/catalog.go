package commands

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"coursera-sync/internal/devutil"
	"coursera-sync/internal/domain"
	"coursera-sync/internal/export"
	"coursera-sync/internal/providers"
	"coursera-sync/internal/providers/coursera"

	"github.com/spf13/cobra"
)

var previewKeys = []string{"name", "slug", "description", "partnerNames", "skills", "avgLearningHours", "rating"}

type catalogFlags struct {
	query  string
	sort   string
	outDir string
	params []string
}

func (f *catalogFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.query, "query", "", "search query sent to the catalog APIs")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort order (default relevance)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "directory for the CSV export (default $OUTPUT_DIR)")
	cmd.Flags().StringArrayVar(&f.params, "param", nil, "extra query parameter k=v, repeatable")
}

func (f *catalogFlags) overrides() (url.Values, error) {
	v, err := parseParams(f.params)
	if err != nil {
		return nil, err
	}
	if f.query != "" {
		v.Set("query", f.query)
	}
	if f.sort != "" {
		v.Set("sort", f.sort)
	}
	return v, nil
}

func newCatalogCmd(a *app) *cobra.Command {
	var f catalogFlags
	cmd := &cobra.Command{
		Use:   "catalog [limit]",
		Short: "Extracts courses from the catalog and exports them to CSV.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := f.overrides()
			if err != nil {
				return err
			}
			limit := parseLimit(a.log, args, 0)

			courses := a.extract(cmd.Context(), limit, overrides)
			if len(courses) == 0 {
				a.log.Warn("no courses extracted")
				return nil
			}
			a.printSample(courses[0])

			if _, err := a.exportCSV(f.outDir, courses); err != nil {
				a.log.WithError(err).Error("export failed")
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) extract(ctx context.Context, limit int, overrides url.Values) []domain.CourseSummary {
	var p providers.CourseProvider = coursera.Provider{C: a.catalogClient(), Limit: limit, Params: overrides}
	a.log.WithField("limit", limit).Infof("extracting courses from %s", p.Name())

	courses, err := p.ListCourses(ctx)
	if err != nil {
		a.log.WithError(err).Error("extraction failed")
		return nil
	}
	a.log.WithField("count", len(courses)).Info("extracted courses")
	return courses
}

func (a *app) printSample(c domain.CourseSummary) {
	fmt.Fprintln(a.out, "Sample course:")
	fmt.Fprintln(a.out, devutil.Preview(c, 100, previewKeys...))
}

func (a *app) exportCSV(outDir string, courses []domain.CourseSummary) (string, error) {
	if outDir == "" {
		outDir = a.cfg.OutputDir
	}
	path, err := export.ExportCoursesCSV(outDir, courses, a.now())
	if err != nil {
		return "", err
	}
	a.log.WithField("path", path).Infof("exported %d courses", len(courses))
	return path, nil
}

// parseParams turns repeated k=v flags into query values.
func parseParams(kvs []string) (url.Values, error) {
	v := url.Values{}
	for _, kv := range kvs {
		k, val, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", kv)
		}
		v.Set(k, val)
	}
	return v, nil
}
