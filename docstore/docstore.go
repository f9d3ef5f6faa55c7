// Package docstore implements the Document Store Gateway (spec.md §4.B)
// over Google Cloud Firestore. Paths are deterministic (see paths.go);
// every entity kind (asset, pipeline state, job record) goes through the
// same Save/Get/List/Update/Delete shape instead of per-entity repository
// types, matching the teacher's preference for a handful of narrow
// interfaces over a type per collection.
package docstore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	xerrors "github.com/youneslaaroussi/asset-pipeline/errors"
	"github.com/youneslaaroussi/asset-pipeline/log"
	"github.com/youneslaaroussi/asset-pipeline/metrics"
)

// Store is the narrow interface every caller depends on.
type Store interface {
	Save(ctx context.Context, path string, doc any) error
	Get(ctx context.Context, path string, dst any) error
	List(ctx context.Context, collectionPath string) ([]map[string]any, error)
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
}

type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) docRef(path string) *firestore.DocumentRef {
	return s.client.Doc(path)
}

func (s *FirestoreStore) observe(op string, start time.Time, err error) {
	success := "true"
	if err != nil {
		success = "false"
		metrics.Metrics.DocStoreClient.FailureCount.WithLabelValues(op).Inc()
	}
	metrics.Metrics.DocStoreClient.RequestDuration.WithLabelValues(op, success).Observe(time.Since(start).Seconds())
}

func (s *FirestoreStore) Save(ctx context.Context, path string, doc any) error {
	start := time.Now()
	_, err := s.docRef(path).Set(ctx, doc)
	s.observe("save", start, err)
	if err != nil {
		return xerrors.NewBackend("save "+log.RedactURL(path), err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, path string, dst any) error {
	start := time.Now()
	snap, err := s.docRef(path).Get(ctx)
	s.observe("get", start, err)
	if status.Code(err) == codes.NotFound {
		return xerrors.NewNotFound("document "+path, err)
	}
	if err != nil {
		return xerrors.NewBackend("get "+log.RedactURL(path), err)
	}
	if !snap.Exists() {
		return xerrors.NewNotFound("document "+path, nil)
	}
	return snap.DataTo(dst)
}

// List enumerates every document under a collection path, returning each as
// a plain map since callers (listAssets, listStatesForProject) re-decode
// into their own typed structs.
func (s *FirestoreStore) List(ctx context.Context, collectionPath string) ([]map[string]any, error) {
	start := time.Now()
	iter := s.client.Collection(collectionPath).Documents(ctx)
	defer iter.Stop()

	var out []map[string]any
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			s.observe("list", start, err)
			return nil, xerrors.NewBackend("list "+log.RedactURL(collectionPath), err)
		}
		out = append(out, snap.Data())
	}
	s.observe("list", start, nil)
	return out, nil
}

func (s *FirestoreStore) Update(ctx context.Context, path string, fields map[string]any) error {
	start := time.Now()
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := s.docRef(path).Update(ctx, updates)
	s.observe("update", start, err)
	if status.Code(err) == codes.NotFound {
		return xerrors.NewNotFound("document "+path, err)
	}
	if err != nil {
		return xerrors.NewBackend("update "+log.RedactURL(path), err)
	}
	return nil
}

func (s *FirestoreStore) Delete(ctx context.Context, path string) error {
	start := time.Now()
	_, err := s.docRef(path).Delete(ctx)
	s.observe("delete", start, err)
	if err != nil {
		return xerrors.NewBackend("delete "+log.RedactURL(path), err)
	}
	return nil
}
