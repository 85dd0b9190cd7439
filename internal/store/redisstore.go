package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iurnickita/ecosystem/internal/store/config"
)

const (
	redisKeyPrefix = "ecosystem:option:"

	// попыток WATCH/MULTI при конкурентной записи
	redisUpdateAttempts = 10
)

var ErrUpdateConflict = errors.New("option update conflict")

type redisStore struct {
	client    *redis.Client
	keyPrefix string
}

func newRedisStore(cfg config.Config) (*redisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisStore{client: client, keyPrefix: redisKeyPrefix}, nil
}

func (store *redisStore) OptionGet(ctx context.Context, name string) ([]byte, error) {
	value, err := store.client.Get(ctx, store.keyPrefix+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get option %s: %w", name, err)
	}
	return value, nil
}

func (store *redisStore) OptionPut(ctx context.Context, name string, value []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := store.client.Set(ctx, store.keyPrefix+name, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to put option %s: %w", name, err)
	}
	return nil
}

func (store *redisStore) OptionAdd(ctx context.Context, name string, value []byte) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := store.client.SetNX(ctx, store.keyPrefix+name, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to add option %s: %w", name, err)
	}
	return nil
}

func (store *redisStore) OptionDelete(ctx context.Context, name string) error {
	if err := store.client.Del(ctx, store.keyPrefix+name).Err(); err != nil {
		return fmt.Errorf("failed to delete option %s: %w", name, err)
	}
	return nil
}

// OptionUpdate: WATCH ключа, чтение, запись в MULTI/EXEC.
// При конкурентном изменении ключа попытка повторяется.
func (store *redisStore) OptionUpdate(ctx context.Context, name string, update UpdateFunc) error {
	if name == "" {
		return ErrEmptyName
	}
	key := store.keyPrefix + name

	txf := func(tx *redis.Tx) error {
		found := true
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				return err
			}
			found = false
		}

		value, err := update(current, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			return nil
		})
		return err
	}

	for i := 0; i < redisUpdateAttempts; i++ {
		err := store.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to update option %s: %w", name, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUpdateConflict, name)
}

func (store *redisStore) Close() error {
	return store.client.Close()
}
