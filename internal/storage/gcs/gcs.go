// Package gcs is the Google Cloud Storage backend.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"coursera-sync/internal/storage"

	"cloud.google.com/go/iam"
	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const publicBaseURL = "https://storage.googleapis.com"

type Client struct {
	ProjectID string

	gcs *gcstorage.Client
}

var _ storage.Store = (*Client)(nil)

// New builds a client from application default credentials unless opts say otherwise.
func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	c, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: new client: %w", err)
	}
	return &Client{ProjectID: projectID, gcs: c}, nil
}

func (c *Client) Close() error { return c.gcs.Close() }

func (c *Client) Backend() string { return "gcs" }

func (c *Client) Upload(ctx context.Context, req storage.UploadRequest) (storage.UploadResult, error) {
	src, err := os.Open(req.LocalPath)
	if err != nil {
		return storage.UploadResult{}, fmt.Errorf("gcs: open local file: %w", err)
	}
	defer src.Close()

	obj := c.gcs.Bucket(req.Bucket).Object(req.Blob)
	w := obj.NewWriter(ctx)
	w.ContentType = req.ContentType
	if len(req.Metadata) > 0 {
		w.Metadata = req.Metadata
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return storage.UploadResult{}, fmt.Errorf("gcs: upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return storage.UploadResult{}, fmt.Errorf("gcs: finalize upload: %w", err)
	}

	res := storage.UploadResult{
		Path:   ObjectPath(req.Bucket, req.Blob),
		Bucket: req.Bucket,
		Blob:   req.Blob,
	}
	if req.Public {
		if err := obj.ACL().Set(ctx, gcstorage.AllUsers, gcstorage.RoleReader); err != nil {
			return res, fmt.Errorf("gcs: make public: %w", err)
		}
		res.URL = PublicURL(req.Bucket, req.Blob)
	}
	return res, nil
}

func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := c.gcs.Bucket(bucket).Attrs(ctx)
	if errors.Is(err, gcstorage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("gcs: bucket attrs: %w", err)
	}
	return true, nil
}

func (c *Client) CreateBucket(ctx context.Context, bucket, location string) error {
	if c.ProjectID == "" {
		return fmt.Errorf("gcs: create bucket %s: GCS_PROJECT_ID is not set", bucket)
	}
	attrs := &gcstorage.BucketAttrs{Location: location}
	if err := c.gcs.Bucket(bucket).Create(ctx, c.ProjectID, attrs); err != nil {
		return fmt.Errorf("gcs: create bucket: %w", err)
	}
	return nil
}

func (c *Client) Bindings(ctx context.Context, bucket string) ([]storage.Binding, error) {
	policy, err := c.gcs.Bucket(bucket).IAM().Policy(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: get iam policy: %w", err)
	}
	roles := policy.Roles()
	out := make([]storage.Binding, 0, len(roles))
	for _, r := range roles {
		out = append(out, storage.Binding{Role: string(r), Members: policy.Members(r)})
	}
	return out, nil
}

func (c *Client) AddBinding(ctx context.Context, bucket string, b storage.Binding) error {
	h := c.gcs.Bucket(bucket).IAM()
	policy, err := h.Policy(ctx)
	if err != nil {
		return fmt.Errorf("gcs: get iam policy: %w", err)
	}
	for _, m := range b.Members {
		policy.Add(m, iam.RoleName(b.Role))
	}
	if err := h.SetPolicy(ctx, policy); err != nil {
		return fmt.Errorf("gcs: set iam policy: %w", err)
	}
	return nil
}

// ObjectPath is the gs:// URI of an object.
func ObjectPath(bucket, blob string) string {
	return "gs://" + bucket + "/" + blob
}

// PublicURL is the anonymous HTTPS URL of a publicly readable object.
func PublicURL(bucket, blob string) string {
	parts := strings.Split(blob, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return publicBaseURL + "/" + bucket + "/" + strings.Join(parts, "/")
}
