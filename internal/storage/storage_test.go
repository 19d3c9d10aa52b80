package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	good := map[string]string{
		"reports/2025/calls.xlsx":   "reports/2025/calls.xlsx",
		" a/./b.xlsx ":              "a/b.xlsx",
		"agency-1/report (1).xlsx":  "agency-1/report (1).xlsx",
		"reports//double/file.xlsx": "reports/double/file.xlsx",
	}
	for in, want := range good {
		got, err := CleanPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "   ", "/etc/passwd", "../secret.xlsx", "a/../../b.xlsx", "a/..", "a\\b.xlsx", "a\x00.xlsx", "."} {
		_, err := CleanPath(bad)
		assert.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestLocalStore_Get(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a1", "calls.xlsx"), []byte("data"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a1", "big.xlsx"), bytes.Repeat([]byte("x"), 11), 0o644))

	s := NewLocalStore(root, 10)
	ctx := context.Background()

	data, err := s.Get(ctx, "a1/calls.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	_, err = s.Get(ctx, "a1/missing.xlsx")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "a1/big.xlsx")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Get(ctx, "../a1/calls.xlsx")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLocalStore_SymlinksStayInsideRoot(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.xlsx"), []byte("secret"), 0o644))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a1", "calls.xlsx"), []byte("data"), 0o644))
	if err := os.Symlink(filepath.Join(outside, "secret.xlsx"), filepath.Join(root, "a1", "escape.xlsx")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "outdir")))
	require.NoError(t, os.Symlink(filepath.Join(root, "a1", "calls.xlsx"), filepath.Join(root, "alias.xlsx")))

	s := NewLocalStore(root, 1<<10)
	ctx := context.Background()

	_, err := s.Get(ctx, "a1/escape.xlsx")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = s.Get(ctx, "outdir/secret.xlsx")
	assert.ErrorIs(t, err, ErrInvalidPath)

	data, err := s.Get(ctx, "alias.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

type fakeS3 struct {
	objects map[string][]byte
	err     error
	lastKey string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastKey = aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[f.lastKey]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestS3Store_Get(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"a1/calls.xlsx": []byte("xlsx"), "a1/huge.xlsx": bytes.Repeat([]byte("x"), 20)}}
	s := &S3Store{client: fake, bucket: "reports", maxBytes: 10}
	ctx := context.Background()

	data, err := s.Get(ctx, "a1/./calls.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []byte("xlsx"), data)
	assert.Equal(t, "a1/calls.xlsx", fake.lastKey)

	_, err = s.Get(ctx, "a1/other.xlsx")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "a1/huge.xlsx")
	assert.ErrorIs(t, err, ErrTooLarge)

	fake.err = errors.New("access denied")
	_, err = s.Get(ctx, "a1/calls.xlsx")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
