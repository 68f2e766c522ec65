package backend

import (
	"context"
	"testing"

	"coursera-sync/internal/config"
	"coursera-sync/internal/logging"
	"coursera-sync/internal/storage"
	"coursera-sync/internal/storage/sftp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnavailable(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Config
		wantMsg string
	}{
		{"none", config.Config{StorageBackend: ""}, "no storage backend"},
		{"unknown", config.Config{StorageBackend: "s3"}, `unknown storage backend "s3"`},
		{"sftp without credentials", config.Config{StorageBackend: "sftp"}, "SFTP_HOST"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Open(context.Background(), tc.cfg, logging.Discard())
			u, ok := s.(storage.Unavailable)
			require.True(t, ok, "got %T", s)
			assert.Contains(t, u.Reason, tc.wantMsg)

			_, err := s.Upload(context.Background(), storage.UploadRequest{})
			assert.ErrorIs(t, err, storage.ErrUnavailable)
		})
	}
}

func TestOpenSFTP(t *testing.T) {
	s := Open(context.Background(), config.Config{
		StorageBackend: "sftp",
		SFTPHost:       "files.example.com",
		SFTPUser:       "u",
		SFTPPass:       "p",
	}, nil)
	_, ok := s.(*sftp.Client)
	assert.True(t, ok, "got %T", s)
	assert.Equal(t, "sftp", s.Backend())
}
