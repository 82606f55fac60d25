package s3service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

// sigmoidModel is a single-layer model over ten standardized features.
const sigmoidModel = `{
  "version": 1,
  "scaler": {"mean": [0,0,0,0,0,0,0,0,0,0], "scale": [1,1,1,1,1,1,1,1,1,1]},
  "layers": [{"weights": [[0,0,1,0,0,0,0,0,0,0]], "bias": [0], "activation": "sigmoid"}]
}`

func TestLoadModel(t *testing.T) {
	objects := newFakeObjects()
	objects.objects["models/matcher.json"] = []byte(sigmoidModel)
	svc := newService(objects, "artifacts", nil)

	model, err := svc.LoadModel(context.Background(), "models/matcher.json")
	require.NoError(t, err)
	assert.Equal(t, 1, model.Version)

	_, err = svc.LoadModel(context.Background(), "models/missing.json")
	require.Error(t, err)
	var noKey *types.NoSuchKey
	assert.True(t, errors.As(err, &noKey))
}

func TestLoadModel_Invalid(t *testing.T) {
	objects := newFakeObjects()
	objects.objects["bad.json"] = []byte(`{"version": 1, "layers": []}`)
	svc := newService(objects, "artifacts", nil)

	_, err := svc.LoadModel(context.Background(), "bad.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://artifacts/bad.json")
}

func TestPublishModel(t *testing.T) {
	objects := newFakeObjects()
	svc := newService(objects, "artifacts", nil)
	ctx := context.Background()

	require.NoError(t, svc.PublishModel(ctx, "models/v2.json", []byte(sigmoidModel)))
	assert.Equal(t, "application/json", objects.types["models/v2.json"])

	exists, err := svc.FileExists(ctx, "models/v2.json")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.FileExists(ctx, "models/v3.json")
	require.NoError(t, err)
	assert.False(t, exists)

	err = svc.PublishModel(ctx, "models/broken.json", []byte(strings.Repeat("{", 3)))
	require.Error(t, err)
	assert.NotContains(t, objects.objects, "models/broken.json")
}
