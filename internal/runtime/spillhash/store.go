package spillhash

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Store is the spill target for a partition evicted from memory (spec
// §4.K, Open Question 3). DiskStore is the default, spilling each
// partition to its own file under a temp directory; RedisStore is a
// selectable alternative for spill state that needs to be visible
// across processes. Each partition spills to its own bucket; fields
// within a bucket are addressed by an arbitrary stable string, not
// necessarily the original map key.
type Store interface {
	SetField(ctx context.Context, bucket, field string, value []byte) error
	AllFields(ctx context.Context, bucket string) (map[string][]byte, error)
	DeleteField(ctx context.Context, bucket, field string) error
	DeleteBucket(ctx context.Context, bucket string) error
}

// RedisStore implements Store against a real or miniredis-backed Redis
// client, grounded on internal/web/cache/redis.go's client-wrapping
// style.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client; prefix namespaces bucket
// names so multiple spillable maps can share one Redis instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(bucket string) string {
	return s.prefix + bucket
}

func (s *RedisStore) SetField(ctx context.Context, bucket, field string, value []byte) error {
	return s.client.HSet(ctx, s.key(bucket), field, value).Err()
}

func (s *RedisStore) AllFields(ctx context.Context, bucket string) (map[string][]byte, error) {
	raw, err := s.client.HGetAll(ctx, s.key(bucket)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for field, value := range raw {
		out[field] = []byte(value)
	}
	return out, nil
}

func (s *RedisStore) DeleteField(ctx context.Context, bucket, field string) error {
	return s.client.HDel(ctx, s.key(bucket), field).Err()
}

func (s *RedisStore) DeleteBucket(ctx context.Context, bucket string) error {
	return s.client.Del(ctx, s.key(bucket)).Err()
}
