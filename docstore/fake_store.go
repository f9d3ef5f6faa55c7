package docstore

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
)

var _ Store = (*FakeStore)(nil)

// FakeStore is an in-memory Store backed by JSON round-tripping (to mimic
// Firestore's DataTo semantics faithfully) guarded by a mutex, used by other
// packages' tests in place of a real Firestore client.
type FakeStore struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func NewFakeStore() *FakeStore {
	return &FakeStore{docs: map[string]map[string]any{}}
}

func toMap(doc any) (map[string]any, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (f *FakeStore) Save(ctx context.Context, path string, doc any) error {
	m, err := toMap(doc)
	if err != nil {
		return xerrors.NewBackend("encode "+path, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[path] = m
	return nil
}

func (f *FakeStore) Get(ctx context.Context, path string, dst any) error {
	f.mu.Lock()
	m, ok := f.docs[path]
	f.mu.Unlock()
	if !ok {
		return xerrors.NewNotFound("document "+path, nil)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return xerrors.NewBackend("decode "+path, err)
	}
	return json.Unmarshal(b, dst)
}

func (f *FakeStore) List(ctx context.Context, collectionPath string) ([]map[string]any, error) {
	prefix := collectionPath + "/"
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for path, doc := range f.docs {
		if strings.HasPrefix(path, prefix) && !strings.Contains(strings.TrimPrefix(path, prefix), "/") {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (f *FakeStore) Update(ctx context.Context, path string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[path]
	if !ok {
		return xerrors.NewNotFound("document "+path, nil)
	}
	for k, v := range fields {
		doc[k] = v
	}
	f.docs[path] = doc
	return nil
}

func (f *FakeStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, path)
	return nil
}
