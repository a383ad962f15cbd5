package export

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"logapi/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	store := NewLocalStore(dir)

	location, err := store.Put(context.Background(), "a.csv", []byte("id\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.csv"), location)

	rc, err := store.Open(context.Background(), location)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
}

func TestLocalStoreRejectsOutsideLocations(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	_, err := store.Open(context.Background(), "/etc/passwd")
	assert.ErrorIs(t, err, ErrArtifactNotFound)

	_, err = store.Open(context.Background(), filepath.Join(store.dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3StoreRoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	store := newS3Store(fake, "exports", "/csv/")

	location, err := store.Put(context.Background(), "logs.csv", []byte("header\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3://exports/csv/logs.csv", location)
	assert.Contains(t, fake.objects, "exports/csv/logs.csv")

	rc, err := store.Open(context.Background(), location)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "header\n", string(data))

	_, err = store.Open(context.Background(), "s3://other-bucket/csv/logs.csv")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
	_, err = store.Open(context.Background(), "/tmp/logs.csv")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestS3StoreMissingObject(t *testing.T) {
	store := newS3Store(&fakeS3{objects: map[string][]byte{}}, "exports", "csv")

	_, err := store.Open(context.Background(), "s3://exports/csv/expired.csv")
	assert.ErrorIs(t, err, ErrArtifactNotFound, "对象不存在应与本地存储一致")
}

func TestNewStoreSelectsImplementation(t *testing.T) {
	store, err := NewStore(context.Background(), config.ExportConfig{Storage: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	store, err = NewStore(context.Background(), config.ExportConfig{
		Storage: "s3",
		S3:      config.S3Config{Bucket: "b", Region: "us-east-1", Endpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s"},
	})
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)

	_, err = NewStore(context.Background(), config.ExportConfig{Storage: "ftp"})
	assert.Error(t, err)
}
