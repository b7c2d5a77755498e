package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alfredjeanlab/buildproc/internal/model"
)

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	getErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3_Key(t *testing.T) {
	c := NewS3WithClient(newFakeS3(), "bucket", "builds")
	if got, err := c.Key("abc123"); err != nil || got != "builds/ab/abc123.json" {
		t.Errorf("Key = %q, %v", got, err)
	}
}

func TestS3_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	c := NewS3WithClient(fake, "bucket", "builds")
	fake.objects["victim.json"] = []byte(`{"id":"other","buildToolType":"gradle"}`)

	for _, id := range []string{"", "../../victim", "ab/cd", ".."} {
		if _, err := c.Key(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Key(%q) error = %v, want ErrInvalidID", id, err)
		}
		if _, ok, err := c.Load(ctx, id, attrs); ok || err != nil {
			t.Errorf("Load(%q) = %v, %v; want miss", id, ok, err)
		}
	}
	if _, exists := fake.objects["victim.json"]; !exists {
		t.Error("object outside the prefix was deleted")
	}
	if err := c.Save(ctx, &model.Build{ID: "../x", BuildToolType: model.KindGradle}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Save error = %v, want ErrInvalidID", err)
	}
}

func TestS3_SaveLoad(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	c := NewS3WithClient(fake, "bucket", "builds")

	if _, ok, err := c.Load(ctx, "abc123", attrs); ok || err != nil {
		t.Fatalf("Load on empty bucket = %v, %v", ok, err)
	}
	if err := c.Save(ctx, newBuild(t, "abc123", model.ModelGradleAttributes)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, ok, err := c.Load(ctx, "abc123", attrs)
	if err != nil || !ok || b.ID != "abc123" {
		t.Fatalf("Load = %v, %v, %v", b, ok, err)
	}
	if _, ok, _ := c.Load(ctx, "abc123", model.NewModelSet(model.ModelGradlePlugins)); ok {
		t.Error("expected miss for a model the stored build lacks")
	}
}

func TestS3_CorruptObjectIsDeleted(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	c := NewS3WithClient(fake, "bucket", "")
	key, _ := c.Key("abc123")
	fake.objects[key] = []byte("garbage")

	if _, ok, err := c.Load(ctx, "abc123", model.ModelSet{}); ok || err != nil {
		t.Fatalf("Load = %v, %v; want miss", ok, err)
	}
	if _, exists := fake.objects[key]; exists {
		t.Error("corrupt object should be deleted")
	}
}

func TestS3_GetErrorPropagates(t *testing.T) {
	fake := newFakeS3()
	fake.getErr = errors.New("access denied")
	c := NewS3WithClient(fake, "bucket", "")
	if _, _, err := c.Load(context.Background(), "abc123", model.ModelSet{}); err == nil {
		t.Fatal("expected error")
	}
}
