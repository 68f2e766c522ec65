package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"coursera-sync/internal/concurrency"
	"coursera-sync/internal/domain"
	"coursera-sync/internal/export"
	"coursera-sync/internal/providers/coursera"

	"github.com/spf13/cobra"
)

var defaultSlugs = []string{"machine-learning", "python", "deep-learning-specialization"}

type detailResult struct {
	slug  string
	info  *domain.CourseDetail
	saved string
}

func newDetailsCmd(a *app) *cobra.Command {
	var (
		workers int
		noSave  bool
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "details [slug...]",
		Short: "Fetches course details from the GraphQL gateway.",
		RunE: func(cmd *cobra.Command, args []string) error {
			slugs := args
			if len(slugs) == 0 {
				slugs = defaultSlugs
			}
			if outDir == "" {
				outDir = a.cfg.OutputDir
			}
			dc := a.detailClient()

			results, errs := concurrency.ProcessParallel(cmd.Context(), slugs, concurrency.ParallelOptions{MaxWorkers: workers},
				func(ctx context.Context, _ int, slug string) (detailResult, error) {
					return a.fetchDetail(ctx, dc, slug, outDir, !noSave)
				})

			for i, r := range results {
				log := a.log.WithField("slug", slugs[i])
				if errs[i] != nil {
					log.WithError(errs[i]).Error("could not fetch course details")
					continue
				}
				if r.saved != "" {
					log.WithField("path", r.saved).Info("saved raw details")
				}
				if r.info == nil {
					continue
				}
				b, err := json.MarshalIndent(r.info, "", "  ")
				if err != nil {
					log.WithError(err).Error("could not render course info")
					continue
				}
				fmt.Fprintf(a.out, "Course info for %s:\n%s\n", r.slug, b)
			}
			if _, failed := concurrency.FirstError(errs); failed > 0 {
				a.log.Warnf("%d of %d courses failed", failed, len(slugs))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", concurrency.DefaultOptions().MaxWorkers, "number of courses fetched at once")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not write <slug>_details.json")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for the JSON files (default $OUTPUT_DIR)")
	return cmd
}

// fetchDetail returns an error only when nothing was fetched. A response
// that does not flatten is still saved.
func (a *app) fetchDetail(ctx context.Context, dc *coursera.DetailClient, slug, outDir string, save bool) (detailResult, error) {
	raw, err := dc.FetchCourseDetails(ctx, slug)
	if err != nil {
		return detailResult{}, err
	}
	r := detailResult{slug: slug}
	log := a.log.WithField("slug", slug)

	if save {
		path, err := export.WriteDetailsJSON(outDir, slug, raw)
		if err != nil {
			log.WithError(err).Warn("could not save raw details")
		}
		r.saved = path
	}

	info, err := coursera.ExtractBasicInfo(raw)
	if err != nil {
		log.WithError(err).Warn("could not extract course info")
		return r, nil
	}
	r.info = info
	return r, nil
}
