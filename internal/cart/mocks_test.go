package cart

import (
	"context"
	"errors"
	"sync"
)

// failingStorage fails every call with err and counts writes.
type failingStorage struct {
	mu     sync.Mutex
	err    error
	sets   int
	values map[string][]byte
}

func newFailingStorage(err error) *failingStorage {
	return &failingStorage{err: err, values: make(map[string][]byte)}
}

func (f *failingStorage) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, ErrNotFound
}

func (f *failingStorage) Set(_ context.Context, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	return f.err
}

func (f *failingStorage) Remove(_ context.Context, _ string) error {
	return f.err
}

var errStorageDisabled = errors.New("storage disabled")
