package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements DocumentStore on a Redis server. Each collection
// is a hash of id to JSON document plus a sorted set that keeps the
// insertion order.
type RedisStore struct {
	rc     *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. Keys are namespaced by prefix.
func NewRedisStore(rc *redis.Client, prefix string) *RedisStore {
	if rc == nil {
		panic("store.NewRedisStore: client is nil")
	}
	if prefix == "" {
		prefix = "kanban"
	}
	return &RedisStore{rc: rc, prefix: prefix}
}

// OpenRedisStore connects using a redis:// URL and pings the server.
func OpenRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		rc.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedisStore(rc, ""), nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.rc.Close()
}

func (s *RedisStore) docsKey(collection string) string {
	return s.prefix + ":" + collection + ":docs"
}

func (s *RedisStore) orderKey(collection string) string {
	return s.prefix + ":" + collection + ":order"
}

func (s *RedisStore) seqKey() string {
	return s.prefix + ":seq"
}

// CreateRecord stores data under a generated UUID.
func (s *RedisStore) CreateRecord(
	ctx context.Context,
	collection string,
	data []byte,
) (string, error) {
	id := uuid.New().String()

	seq, err := s.rc.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return "", fmt.Errorf("creating %s record: %w", collection, err)
	}

	_, err = s.rc.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, s.docsKey(collection), id, data)
		p.ZAdd(ctx, s.orderKey(collection), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("creating %s record: %w", collection, err)
	}
	return id, nil
}

// GetRecord retrieves a single document.
func (s *RedisStore) GetRecord(
	ctx context.Context,
	collection, id string,
) ([]byte, error) {
	data, err := s.rc.HGet(ctx, s.docsKey(collection), id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("getting %s record %s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s record %s: %w", collection, id, err)
	}
	return data, nil
}

// ListRecords returns documents ordered by their creation sequence.
func (s *RedisStore) ListRecords(
	ctx context.Context,
	collection string,
) ([]Document, error) {
	ids, err := s.rc.ZRange(ctx, s.orderKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", collection, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	values, err := s.rc.HMGet(ctx, s.docsKey(collection), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("listing %s records: %w", collection, err)
	}

	docs := make([]Document, 0, len(ids))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Order entry without a document; skip it.
			continue
		}
		docs = append(docs, Document{ID: ids[i], Data: []byte(str)})
	}
	return docs, nil
}

// UpdateRecord merges partial into the stored document. The read and
// write run under WATCH so a concurrent writer aborts the transaction.
func (s *RedisStore) UpdateRecord(
	ctx context.Context,
	collection, id string,
	partial map[string]any,
) error {
	key := s.docsKey(collection)

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGet(ctx, key, id).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		merged, err := mergeFields(data, partial)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, id, merged)
			return nil
		})
		return err
	}

	if err := s.rc.Watch(ctx, txf, key); err != nil {
		return fmt.Errorf("updating %s record %s: %w", collection, id, err)
	}
	return nil
}

// DeleteRecord removes a document and its order entry.
func (s *RedisStore) DeleteRecord(ctx context.Context, collection, id string) error {
	var del *redis.IntCmd
	_, err := s.rc.TxPipelined(ctx, func(p redis.Pipeliner) error {
		del = p.HDel(ctx, s.docsKey(collection), id)
		p.ZRem(ctx, s.orderKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting %s record %s: %w", collection, id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("deleting %s record %s: %w", collection, id, ErrNotFound)
	}
	return nil
}
