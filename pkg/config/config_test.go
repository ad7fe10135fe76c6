package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/wal"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  path: /var/lib/app/raft.wal
  sync: none
logging:
  level: debug
metrics:
  listen: "127.0.0.1:9100"
archive:
  backend: s3
  prefix: raft
  s3:
    bucket: wal-archive
    endpoint: http://localhost:9000
    use_path_style: true
`))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/app/raft.wal", cfg.Log.Path)
	assert.Equal(t, "none", cfg.Log.Sync)
	assert.Equal(t, wal.DefaultReadBufferSize, cfg.Log.ReadBufferSize, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "wal-archive", cfg.Archive.S3.Bucket)
	assert.True(t, cfg.Archive.S3.UsePathStyle)

	opts, err := cfg.Options(logging.NewNopLogger(), nil)
	require.NoError(t, err)
	assert.Equal(t, wal.SyncNone, opts.SyncMode)
	assert.Equal(t, os.FileMode(0644), opts.FileMode)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("log:\n  pth: x\n"))
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	_, err := Parse([]byte(`
log:
  path: ""
  sync: sometimes
  read_buffer_size: 10
  file_mode: "999"
logging:
  level: loud
metrics:
  listen: "not an address"
archive:
  backend: dir
`))
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"log.path: field is required",
		"log.sync:",
		"log.read_buffer_size: must be at least 512",
		"log.file_mode:",
		"logging.level:",
		"metrics.listen:",
		"archive.dir: field is required",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestValidate_S3Rules(t *testing.T) {
	cfg := Default()
	cfg.Archive.Backend = "s3"
	cfg.Archive.S3.AccessKeyID = "AKIA"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive.s3.bucket")
	assert.Contains(t, err.Error(), "archive.s3.region")
	assert.Contains(t, err.Error(), "archive.s3.secret_access_key")

	cfg.Archive.S3.Bucket = "b"
	cfg.Archive.S3.Region = "eu-west-1"
	cfg.Archive.S3.SecretAccessKey = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  path: a.wal\n  file_mode: \"0600\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a.wal", cfg.Log.Path)
	assert.Equal(t, os.FileMode(0600), cfg.Log.FileModeValue())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestArchiveStore(t *testing.T) {
	ctx := context.Background()

	cfg := Default()
	_, err := cfg.ArchiveStore(ctx)
	assert.ErrorIs(t, err, ErrNoArchive)

	cfg.Archive.Backend = "dir"
	cfg.Archive.Dir = filepath.Join(t.TempDir(), "segments")
	store, err := cfg.ArchiveStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dir", store.Name())
	assert.DirExists(t, cfg.Archive.Dir)

	cfg.Archive.Backend = "s3"
	cfg.Archive.S3.Bucket = "wal-archive"
	cfg.Archive.S3.Region = "us-east-1"
	cfg.Archive.S3.Endpoint = "http://127.0.0.1:9000"
	cfg.Archive.S3.UsePathStyle = true
	cfg.Archive.S3.AccessKeyID = "minio"
	cfg.Archive.S3.SecretAccessKey = "minio123"
	store, err = cfg.ArchiveStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3", store.Name())
}
