package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"coursera-sync/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeGCS answers the subset of the JSON API the backend calls.
type fakeGCS struct {
	mu       sync.Mutex
	buckets  map[string]bool
	policy   string
	uploads  []string
	created  []string
	acls     int
	policies []string
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	p := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.Contains(p, "/acl"):
		f.acls++
		_, _ = io.WriteString(w, `{"entity":"allUsers","role":"READER"}`)
	case strings.HasSuffix(p, "/iam") && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, f.policy)
	case strings.HasSuffix(p, "/iam") && r.Method == http.MethodPut:
		f.policies = append(f.policies, string(body))
		f.policy = string(body)
		_, _ = w.Write(body)
	case strings.HasSuffix(p, "/o") && r.Method == http.MethodPost:
		f.uploads = append(f.uploads, string(body))
		_, _ = io.WriteString(w, `{"bucket":"exports","name":"courses.csv"}`)
	case strings.HasSuffix(p, "/b") && r.Method == http.MethodPost:
		f.created = append(f.created, string(body))
		_, _ = io.WriteString(w, `{"name":"fresh","location":"US-CENTRAL1"}`)
	case r.Method == http.MethodGet && strings.Contains(p, "/b/"):
		name := p[strings.LastIndex(p, "/")+1:]
		if !f.buckets[name] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"name":"`+name+`"}`)
	default:
		w.WriteHeader(http.StatusNotImplemented)
		_, _ = io.WriteString(w, `{"error":{"code":501,"message":"unexpected `+r.Method+` `+p+`"}}`)
	}
}

func newTestClient(t *testing.T, f *fakeGCS) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), "demo-project",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUploadPublicWithMetadata(t *testing.T) {
	f := &fakeGCS{buckets: map[string]bool{"exports": true}}
	c := newTestClient(t, f)

	local := filepath.Join(t.TempDir(), "courses.csv")
	require.NoError(t, os.WriteFile(local, []byte("id,name\n1,ML\n"), 0o644))

	res, err := storage.UploadFile(context.Background(), c, local, "exports", storage.UploadOptions{
		Public:   true,
		Metadata: map[string]string{"source": "coursera_api", "record_count": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gs://exports/courses.csv", res.Path)
	assert.Equal(t, "https://storage.googleapis.com/exports/courses.csv", res.URL)
	assert.Equal(t, "courses.csv", res.Blob)

	require.Len(t, f.uploads, 1)
	assert.Contains(t, f.uploads[0], `"source":"coursera_api"`)
	assert.Contains(t, f.uploads[0], "1,ML")
	assert.Equal(t, 1, f.acls)
}

func TestUploadPrivate(t *testing.T) {
	f := &fakeGCS{buckets: map[string]bool{"exports": true}}
	c := newTestClient(t, f)

	local := filepath.Join(t.TempDir(), "courses.csv")
	require.NoError(t, os.WriteFile(local, []byte("id\n"), 0o644))

	res, err := storage.UploadFile(context.Background(), c, local, "exports", storage.UploadOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.URL)
	assert.Zero(t, f.acls)
}

func TestEnsureBucketCreatesAndGrants(t *testing.T) {
	f := &fakeGCS{buckets: map[string]bool{}, policy: `{"bindings":[],"etag":"CAE="}`}
	c := newTestClient(t, f)

	require.NoError(t, storage.EnsureBucket(context.Background(), c, "fresh", "", "ana@example.com"))

	require.Len(t, f.created, 1)
	assert.Contains(t, f.created[0], `"location":"us-central1"`)
	require.Len(t, f.policies, 1)
	assert.Contains(t, f.policies[0], "user:ana@example.com")
	assert.Contains(t, f.policies[0], storage.ViewerRole)
}

func TestEnsureBucketExistingGrant(t *testing.T) {
	f := &fakeGCS{
		buckets: map[string]bool{"exports": true},
		policy:  `{"bindings":[{"role":"roles/storage.objectViewer","members":["user:ana@example.com"]}],"etag":"CAE="}`,
	}
	c := newTestClient(t, f)

	require.NoError(t, storage.EnsureBucket(context.Background(), c, "exports", "", "ana@example.com"))
	assert.Empty(t, f.created)
	assert.Empty(t, f.policies, "an existing binding must not be appended twice")
}

func TestCreateBucketRequiresProject(t *testing.T) {
	f := &fakeGCS{buckets: map[string]bool{}}
	c := newTestClient(t, f)
	c.ProjectID = ""

	err := c.CreateBucket(context.Background(), "fresh", "us-central1")
	assert.ErrorContains(t, err, "GCS_PROJECT_ID")
	assert.Empty(t, f.created)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "gs://b/dir/file.csv", ObjectPath("b", "dir/file.csv"))
	assert.Equal(t, "https://storage.googleapis.com/b/dir/my%20file.csv", PublicURL("b", "dir/my file.csv"))
}
