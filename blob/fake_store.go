package blob

import (
	"context"
	"time"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
)

var _ Store = (*FakeStore)(nil)

// FakeStore is an in-memory Store used by other packages' tests, following
// the teacher's stub-coordinator convention (NewStubCoordinatorOpts) of
// hand-written fakes behind a narrow interface instead of a mocking
// framework.
type FakeStore struct {
	Objects map[string][]byte
	// SignedURLFunc, when set, overrides the default deterministic URL.
	SignedURLFunc func(bucket, object string) string
}

func NewFakeStore() *FakeStore {
	return &FakeStore{Objects: map[string][]byte{}}
}

func (f *FakeStore) key(bucket, object string) string {
	return bucket + "/" + object
}

func (f *FakeStore) Upload(ctx context.Context, data []byte, bucket, objectName, contentType string) (UploadResult, error) {
	f.Objects[f.key(bucket, objectName)] = data
	return UploadResult{GCSUri: FormatGCSURI(bucket, objectName), Bucket: bucket, ObjectName: objectName}, nil
}

func (f *FakeStore) Download(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}
	data, ok := f.Objects[f.key(bucket, object)]
	if !ok {
		return nil, xerrors.NewNotFound("object "+gcsURI, nil)
	}
	return data, nil
}

func (f *FakeStore) SignedReadURL(ctx context.Context, bucket, objectName string, ttl time.Duration) (string, error) {
	if f.SignedURLFunc != nil {
		return f.SignedURLFunc(bucket, objectName), nil
	}
	return "https://storage.googleapis.com/" + bucket + "/" + objectName + "?signed=read", nil
}

func (f *FakeStore) SignedWriteURL(ctx context.Context, bucket, objectName, contentType string, ttl time.Duration) (string, error) {
	if f.SignedURLFunc != nil {
		return f.SignedURLFunc(bucket, objectName), nil
	}
	return "https://storage.googleapis.com/" + bucket + "/" + objectName + "?signed=write", nil
}

func (f *FakeStore) Delete(ctx context.Context, gcsURI string) (bool, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return false, err
	}
	key := f.key(bucket, object)
	if _, ok := f.Objects[key]; !ok {
		return false, nil
	}
	delete(f.Objects, key)
	return true, nil
}

func (f *FakeStore) Exists(ctx context.Context, gcsURI string) (bool, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return false, err
	}
	_, ok := f.Objects[f.key(bucket, object)]
	return ok, nil
}
