package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"coursera-sync/internal/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type uploadFlags struct {
	catalog      catalogFlags
	public       bool
	ensureBucket bool
	location     string
	grantViewer  string
	backend      string
}

func newUploadCmd(a *app) *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   "upload <bucket> [limit]",
		Short: "Extracts courses, exports them to CSV and uploads the file to a bucket.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bucket := strings.TrimSpace(args[0])
			if bucket == "" {
				return fmt.Errorf("bucket name is required")
			}
			overrides, err := f.catalog.overrides()
			if err != nil {
				return err
			}
			limit := parseLimit(a.log, args, 1)
			ctx := cmd.Context()

			courses := a.extract(ctx, limit, overrides)
			if len(courses) == 0 {
				a.log.Warn("no courses extracted, nothing to upload")
				return nil
			}
			path, err := a.exportCSV(f.catalog.outDir, courses)
			if err != nil {
				a.log.WithError(err).Error("export failed")
				return nil
			}

			cfg := a.cfg
			if f.backend != "" {
				cfg.StorageBackend = strings.ToLower(f.backend)
			}
			store := a.openStore(ctx, cfg, a.log)
			log := a.log.WithFields(logrus.Fields{"backend": store.Backend(), "bucket": bucket})

			if f.ensureBucket || f.grantViewer != "" {
				location := f.location
				if location == "" {
					location = cfg.GCSLocation
				}
				if err := storage.EnsureBucket(ctx, store, bucket, location, f.grantViewer); err != nil {
					log.WithError(err).Error("could not prepare bucket")
				}
			}

			res, err := storage.UploadFile(ctx, store, path, bucket, storage.UploadOptions{
				Public:   f.public,
				Metadata: uploadMetadata(a.now(), len(courses), a.runID),
			})
			a.metrics.Upload(store.Backend(), err == nil)
			if err != nil {
				log.WithError(err).Error("upload failed")
				return nil
			}

			log.WithField("path", res.Path).Info("uploaded export")
			fmt.Fprintf(a.out, "Uploaded to %s\n", res.Path)
			if res.URL != "" {
				fmt.Fprintf(a.out, "Public URL: %s\n", res.URL)
			}
			return nil
		},
	}
	f.catalog.register(cmd)
	cmd.Flags().BoolVar(&f.public, "public", true, "make the uploaded object publicly readable")
	cmd.Flags().BoolVar(&f.ensureBucket, "ensure-bucket", false, "create the bucket when it does not exist")
	cmd.Flags().StringVar(&f.location, "location", "", "bucket location (default $GCS_LOCATION or us-central1)")
	cmd.Flags().StringVar(&f.grantViewer, "grant-viewer", "", "email granted roles/storage.objectViewer on the bucket")
	cmd.Flags().StringVar(&f.backend, "backend", "", "gcs or sftp (default $STORAGE_BACKEND)")
	return cmd
}

func uploadMetadata(now time.Time, count int, runID string) map[string]string {
	return map[string]string{
		"source":          "coursera_api",
		"extraction_date": now.Format("20060102"),
		"record_count":    strconv.Itoa(count),
		"run_id":          runID,
	}
}
