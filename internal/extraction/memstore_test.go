package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// memStore is an in-memory blob.Store for tests.
type memStore struct {
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) put(path string, data []byte) {
	m.blobs[path] = data
}

func (m *memStore) Upload(ctx context.Context, path string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.blobs[path] = data
	return nil
}

func (m *memStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.blobs[path]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(ctx context.Context, path string) error {
	delete(m.blobs, path)
	return nil
}
