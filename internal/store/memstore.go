package store

import (
	"context"
	"sync"
)

type memStore struct {
	mu      sync.RWMutex
	options map[string][]byte
}

// NewMemStore - хранилище в памяти процесса, для запуска без БД и для тестов.
func NewMemStore() Store {
	return &memStore{options: make(map[string][]byte)}
}

func (store *memStore) OptionGet(_ context.Context, name string) ([]byte, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	value, ok := store.options[name]
	if !ok {
		return nil, ErrNoRows
	}
	return append([]byte(nil), value...), nil
}

func (store *memStore) OptionPut(_ context.Context, name string, value []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	store.options[name] = append([]byte(nil), value...)
	return nil
}

func (store *memStore) OptionAdd(_ context.Context, name string, value []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.options[name]; !ok {
		store.options[name] = append([]byte(nil), value...)
	}
	return nil
}

func (store *memStore) OptionDelete(_ context.Context, name string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.options, name)
	return nil
}

func (store *memStore) OptionUpdate(_ context.Context, name string, update UpdateFunc) error {
	if name == "" {
		return ErrEmptyName
	}
	store.mu.Lock()
	defer store.mu.Unlock()

	current, found := store.options[name]
	value, err := update(append([]byte(nil), current...), found)
	if err != nil {
		return err
	}
	store.options[name] = append([]byte(nil), value...)
	return nil
}

func (store *memStore) Close() error {
	return nil
}
