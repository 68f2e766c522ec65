// Package backend picks the storage implementation named by the configuration.
package backend

import (
	"context"
	"fmt"

	"coursera-sync/internal/config"
	"coursera-sync/internal/storage"
	"coursera-sync/internal/storage/gcs"
	"coursera-sync/internal/storage/sftp"

	"github.com/sirupsen/logrus"
)

// Open never fails: a backend that cannot be built comes back as
// storage.Unavailable carrying the reason.
func Open(ctx context.Context, cfg config.Config, log logrus.FieldLogger) storage.Store {
	var (
		s   storage.Store
		err error
	)
	switch cfg.StorageBackend {
	case "gcs":
		s, err = gcs.New(ctx, cfg.GCSProjectID)
	case "sftp":
		s, err = sftp.New(sftp.Config{
			Host:                  cfg.SFTPHost,
			Port:                  cfg.SFTPPort,
			User:                  cfg.SFTPUser,
			Pass:                  cfg.SFTPPass,
			RemoteDir:             cfg.SFTPDir,
			KnownHostsFile:        cfg.SFTPKnownHosts,
			InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
		})
	case "", "none":
		err = fmt.Errorf("no storage backend configured")
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
	if err != nil {
		if log != nil {
			log.WithError(err).WithField("backend", cfg.StorageBackend).Warn("storage backend unavailable")
		}
		return storage.Unavailable{Reason: err.Error()}
	}
	return s
}
