package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/wrfhydro-prep/pkg/config"
	"github.com/dd0wney/wrfhydro-prep/pkg/hydroerr"
	"github.com/dd0wney/wrfhydro-prep/pkg/logging"
)

type object struct {
	bucket, key, contentType string
	body                     string
}

type fakeS3 struct {
	objects []object
	failOn  string
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failOn {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects = append(f.objects, object{
		bucket:      aws.ToString(in.Bucket),
		key:         key,
		contentType: aws.ToString(in.ContentType),
		body:        string(body),
	})
	return &s3.PutObjectOutput{}, nil
}

func files(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	zip := filepath.Join(dir, "wrfhydro_deck.zip")
	manifest := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(zip, []byte("PK"), 0o644))
	require.NoError(t, os.WriteFile(manifest, []byte("run_id: r\n"), 0o644))
	return zip, manifest
}

func TestPublish(t *testing.T) {
	zip, manifest := files(t)
	fake := &fakeS3{}
	rec := logging.NewRecorder()
	p := New(fake, config.Publish{Bucket: "decks", Prefix: "front-range"}, rec)

	keys, err := p.Publish(context.Background(), "run-7", zip, manifest)
	require.NoError(t, err)

	assert.Equal(t, []string{"front-range/run-7/wrfhydro_deck.zip", "front-range/run-7/manifest.yaml"}, keys)
	require.Len(t, fake.objects, 2)
	assert.Equal(t, object{bucket: "decks", key: keys[0], contentType: "application/zip", body: "PK"}, fake.objects[0])
	assert.Equal(t, "application/yaml", fake.objects[1].contentType)
	assert.Equal(t, 2, rec.Count(logging.InfoLevel, "deck file published"))
}

func TestPublish_StopsAtFailure(t *testing.T) {
	zip, manifest := files(t)
	fake := &fakeS3{failOn: "run-7/wrfhydro_deck.zip"}
	p := New(fake, config.Publish{Bucket: "decks"}, logging.NewNopLogger())

	keys, err := p.Publish(context.Background(), "run-7", zip, manifest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, hydroerr.ErrIO))
	assert.Empty(t, keys)
	assert.Empty(t, fake.objects)
}

func TestPublish_MissingFile(t *testing.T) {
	p := New(&fakeS3{}, config.Publish{Bucket: "decks"}, logging.NewNopLogger())
	_, err := p.Publish(context.Background(), "r", filepath.Join(t.TempDir(), "absent.zip"))
	assert.True(t, errors.Is(err, hydroerr.ErrIO))
}

func TestPublish_Cancelled(t *testing.T) {
	zip, _ := files(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &fakeS3{}
	_, err := New(fake, config.Publish{Bucket: "decks"}, logging.NewNopLogger()).Publish(ctx, "r", zip)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.objects)
}

func TestNewClient_StaticCredentials(t *testing.T) {
	client, err := NewClient(context.Background(), config.Publish{
		Region:          "us-west-2",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)

	opts := client.Options()
	assert.Equal(t, "us-west-2", opts.Region)
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))

	creds, err := opts.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "minio", creds.AccessKeyID)
}
