// Package sftp stores exports on an SFTP server. A bucket is a directory
// under the remote root and object metadata lives in a JSON sidecar.
package sftp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"coursera-sync/internal/storage"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const metadataSuffix = ".metadata.json"

type Config struct {
	Host                  string
	Port                  int
	User                  string
	Pass                  string
	RemoteDir             string
	KnownHostsFile        string
	InsecureIgnoreHostKey bool
}

// session is an open SFTP connection and whatever must be closed with it.
type session struct {
	*sftp.Client
	closeFn func() error
}

func (s *session) Close() error {
	err := s.Client.Close()
	if s.closeFn != nil {
		if cerr := s.closeFn(); err == nil {
			err = cerr
		}
	}
	return err
}

type Client struct {
	cfg  Config
	dial func(ctx context.Context) (*session, error)
}

var _ storage.Store = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return nil, fmt.Errorf("sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}
	c := &Client{cfg: cfg}
	c.dial = c.dialSSH
	return c, nil
}

func (c *Client) Backend() string { return "sftp" }

func (c *Client) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if c.cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	file := c.cfg.KnownHostsFile
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("sftp: locate known_hosts: %w", err)
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(file)
	if err != nil {
		return nil, fmt.Errorf("sftp: load known_hosts %s: %w", file, err)
	}
	return cb, nil
}

func (c *Client) dialSSH(ctx context.Context) (*session, error) {
	cb, err := c.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	sshCfg := &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(c.cfg.Pass)},
		HostKeyCallback: cb,
		Timeout:         20 * time.Second,
	}
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		sc, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialRes{client: sc, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				r.client.Close()
			}
		}()
		return nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		sshClient = r.client
	}

	cli, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("sftp: new client: %w", err)
	}
	return &session{Client: cli, closeFn: sshClient.Close}, nil
}

// BucketDir is the remote directory backing bucket. Names that would
// leave the remote root are rejected.
func (c *Client) BucketDir(bucket string) (string, error) {
	if err := validBucket(bucket); err != nil {
		return "", err
	}
	return path.Join(c.cfg.RemoteDir, bucket), nil
}

func validBucket(bucket string) error {
	if bucket == "" || bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `/\`) {
		return fmt.Errorf("sftp: invalid bucket name %q", bucket)
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, req storage.UploadRequest) (storage.UploadResult, error) {
	dir, err := c.BucketDir(req.Bucket)
	if err != nil {
		return storage.UploadResult{}, err
	}
	// Public has no meaning on SFTP; the result carries no URL.
	blob := path.Clean("/" + req.Blob)[1:]
	if blob == "" {
		return storage.UploadResult{}, fmt.Errorf("sftp: empty blob name")
	}

	src, err := os.Open(req.LocalPath)
	if err != nil {
		return storage.UploadResult{}, fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	s, err := c.dial(ctx)
	if err != nil {
		return storage.UploadResult{}, err
	}
	defer s.Close()

	remotePath := path.Join(dir, blob)
	if err := s.MkdirAll(path.Dir(remotePath)); err != nil {
		return storage.UploadResult{}, fmt.Errorf("sftp: mkdir %s: %w", path.Dir(remotePath), err)
	}

	dst, err := s.Create(remotePath)
	if err != nil {
		return storage.UploadResult{}, fmt.Errorf("sftp: create remote file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return storage.UploadResult{}, fmt.Errorf("sftp: upload copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		return storage.UploadResult{}, fmt.Errorf("sftp: close remote file: %w", err)
	}

	if err := writeSidecar(s.Client, remotePath, req); err != nil {
		return storage.UploadResult{}, err
	}

	return storage.UploadResult{
		Path:   "sftp://" + c.cfg.Host + remotePath,
		Bucket: req.Bucket,
		Blob:   blob,
	}, nil
}

type sidecar struct {
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func writeSidecar(cli *sftp.Client, remotePath string, req storage.UploadRequest) error {
	b, err := json.MarshalIndent(sidecar{ContentType: req.ContentType, Metadata: req.Metadata}, "", "  ")
	if err != nil {
		return fmt.Errorf("sftp: encode metadata: %w", err)
	}
	f, err := cli.Create(remotePath + metadataSuffix)
	if err != nil {
		return fmt.Errorf("sftp: create metadata file: %w", err)
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("sftp: write metadata file: %w", err)
	}
	return f.Close()
}

// BucketExists reports whether the bucket directory is present.
func (c *Client) BucketExists(ctx context.Context, bucket string) (bool, error) {
	dir, err := c.BucketDir(bucket)
	if err != nil {
		return false, err
	}
	s, err := c.dial(ctx)
	if err != nil {
		return false, err
	}
	defer s.Close()

	fi, err := s.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("sftp: stat %s: %w", bucket, err)
	}
	return fi.IsDir(), nil
}

// CreateBucket makes the bucket directory. location has no meaning here.
func (c *Client) CreateBucket(ctx context.Context, bucket, _ string) error {
	dir, err := c.BucketDir(bucket)
	if err != nil {
		return err
	}
	s, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.MkdirAll(dir); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", bucket, err)
	}
	return nil
}

func (c *Client) Bindings(context.Context, string) ([]storage.Binding, error) {
	return nil, fmt.Errorf("sftp: access policies: %w", storage.ErrUnsupported)
}

func (c *Client) AddBinding(context.Context, string, storage.Binding) error {
	return fmt.Errorf("sftp: access policies: %w", storage.ErrUnsupported)
}
