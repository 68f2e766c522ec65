package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	DefaultLocation = "us-central1"
	ViewerRole      = "roles/storage.objectViewer"
)

var (
	// ErrUnavailable is returned by every operation of a backend that could not be constructed.
	ErrUnavailable = errors.New("storage: backend unavailable")
	// ErrUnsupported is returned when a backend has no equivalent for an operation.
	ErrUnsupported = errors.New("storage: operation not supported by backend")
)

// Client uploads files to object storage.
type Client interface {
	Backend() string
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)
}

// BucketManager creates buckets and manages their access policy.
type BucketManager interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket, location string) error
	Bindings(ctx context.Context, bucket string) ([]Binding, error)
	AddBinding(ctx context.Context, bucket string, b Binding) error
}

// Store is a backend able to both upload and manage buckets.
type Store interface {
	Client
	BucketManager
}

// Binding grants a role to a set of principals ("user:a@b.c", "allUsers").
type Binding struct {
	Role    string
	Members []string
}

type UploadOptions struct {
	BlobName    string // defaults to the local file's base name
	ContentType string // defaults to the extension's MIME type
	Public      bool
	Metadata    map[string]string
}

type UploadRequest struct {
	LocalPath   string
	Bucket      string
	Blob        string
	ContentType string
	Public      bool
	Metadata    map[string]string
}

type UploadResult struct {
	URL    string `json:"url,omitempty"` // public URL, empty when the object is private
	Path   string `json:"path"`
	Bucket string `json:"bucket"`
	Blob   string `json:"blob"`
}

// UploadFile sends localPath to bucket through c, filling in blob name and content type.
func UploadFile(ctx context.Context, c Client, localPath, bucket string, opts UploadOptions) (*UploadResult, error) {
	if c == nil {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("storage: empty bucket name")
	}
	fi, err := os.Stat(localPath)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", localPath, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("storage: %s is a directory", localPath)
	}

	req := UploadRequest{
		LocalPath:   localPath,
		Bucket:      bucket,
		Blob:        opts.BlobName,
		ContentType: opts.ContentType,
		Public:      opts.Public,
		Metadata:    opts.Metadata,
	}
	if req.Blob == "" {
		req.Blob = filepath.Base(localPath)
	}
	if req.ContentType == "" {
		req.ContentType = ContentTypeFor(localPath)
	}

	res, err := c.Upload(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("storage: upload %s to %s (%s): %w", localPath, bucket, c.Backend(), err)
	}
	return &res, nil
}

// ContentTypeFor guesses a MIME type from the file extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// EnsureBucket creates bucket when it does not exist and, when userEmail is
// set, grants that user read access to its objects exactly once.
func EnsureBucket(ctx context.Context, m BucketManager, bucket, location, userEmail string) error {
	if m == nil {
		return ErrUnavailable
	}
	if location == "" {
		location = DefaultLocation
	}

	exists, err := m.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("storage: check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := m.CreateBucket(ctx, bucket, location); err != nil {
			return fmt.Errorf("storage: create bucket %s: %w", bucket, err)
		}
	}

	userEmail = strings.TrimSpace(userEmail)
	if userEmail == "" {
		return nil
	}
	member := "user:" + userEmail

	bindings, err := m.Bindings(ctx, bucket)
	if err != nil {
		return fmt.Errorf("storage: read policy of %s: %w", bucket, err)
	}
	if HasMember(bindings, ViewerRole, member) {
		return nil
	}
	if err := m.AddBinding(ctx, bucket, Binding{Role: ViewerRole, Members: []string{member}}); err != nil {
		return fmt.Errorf("storage: grant %s on %s: %w", ViewerRole, bucket, err)
	}
	return nil
}

// HasMember reports whether any binding for role already lists member.
func HasMember(bindings []Binding, role, member string) bool {
	for _, b := range bindings {
		if b.Role == role && slices.Contains(b.Members, member) {
			return true
		}
	}
	return false
}

// Unavailable stands in for a backend that could not be built.
type Unavailable struct {
	Reason string
}

var _ Store = Unavailable{}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, u.Reason)
}

func (u Unavailable) Backend() string { return "unavailable" }

func (u Unavailable) Upload(context.Context, UploadRequest) (UploadResult, error) {
	return UploadResult{}, u.err()
}

func (u Unavailable) BucketExists(context.Context, string) (bool, error) { return false, u.err() }

func (u Unavailable) CreateBucket(context.Context, string, string) error { return u.err() }

func (u Unavailable) Bindings(context.Context, string) ([]Binding, error) { return nil, u.err() }

func (u Unavailable) AddBinding(context.Context, string, Binding) error { return u.err() }
