package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// memStore is an in-memory storage.Storage for end-to-end service tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string]storage.ObjectInfo
	data    map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]storage.ObjectInfo{}, data: map[string][]byte{}}
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	info := storage.ObjectInfo{
		Key:          key,
		Size:         int64(buf.Len()),
		ContentType:  opt.ContentType,
		LastModified: time.Now(),
		Metadata:     opt.Metadata,
	}
	m.objects[key] = info
	m.data[key] = buf.Bytes()
	return info, nil
}

func (m *memStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.objects[key]
	if !ok {
		return storage.ObjectInfo{}, fmt.Errorf("stat %q: %w", key, storage.ErrObjectNotFound)
	}
	return info, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.data, key)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?X-Amz-Expires=%d", key, int(expiry/time.Second)), nil
}

func (m *memStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.ObjectInfo
	for k, info := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// memRepo is an in-memory repository.DocumentRepository with store-assigned ids.
type memRepo struct {
	mu   sync.Mutex
	seq  int
	recs map[string]model.DocumentRecord
}

func newMemRepo() *memRepo {
	return &memRepo{recs: map[string]model.DocumentRecord{}}
}

func (m *memRepo) Insert(_ context.Context, rec *model.DocumentRecord) (*model.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	out := *rec
	out.ID = fmt.Sprintf("doc-%03d", m.seq)
	m.recs[out.ID] = out
	return &out, nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*model.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rec, nil
}

func (m *memRepo) FindAll(_ context.Context) ([]model.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DocumentRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memRepo) FindByBlobKey(_ context.Context, key string) (*model.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.recs {
		if rec.BlobKey == key {
			r := rec
			return &r, nil
		}
	}
	return nil, repository.ErrNotFound
}

// pdfBytes returns n bytes that sniff as application/pdf.
func pdfBytes(n int) []byte {
	head := []byte("%PDF-1.7\n")
	if n < len(head) {
		return head[:n]
	}
	return append(head, bytes.Repeat([]byte{'0'}, n-len(head))...)
}
