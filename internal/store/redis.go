package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisMaxSize matches Redis' default proto-max-bulk-len, the largest
// string value a server accepts.
const DefaultRedisMaxSize = 512 << 20

// ErrTooLarge is returned by Redis.Put for artifacts above the size limit.
var ErrTooLarge = errors.New("artifact too large for the store")

// RedisConfig configures the Redis backend. Artifacts are buffered in memory
// and stored as one string value, so each one must fit in MaxSize.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL bounds how long artifacts outlive the run. Zero keeps them forever.
	TTL time.Duration
	// KeyPrefix namespaces keys; defaults to "pcrelease:artifact:".
	KeyPrefix string
	// MaxSize caps an artifact in bytes; defaults to DefaultRedisMaxSize.
	MaxSize int64
}

// Redis stores each artifact as a single string value. A SET replaces the
// value atomically, so readers never see a partial artifact.
type Redis struct {
	client *redis.Client
	prefix  string
	ttl     time.Duration
	maxSize int64
	logger  *zap.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "pcrelease:artifact:"
	}
	maxSize := cfg.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultRedisMaxSize
	}
	logger.Debug("artifact store connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &Redis{client: client, prefix: prefix, ttl: cfg.TTL, maxSize: maxSize, logger: logger}, nil
}

func (s *Redis) key(name string) string { return s.prefix + name }

func (s *Redis) Put(ctx context.Context, name string, r io.Reader) error {
	if err := validName(name); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if int64(len(data)) > s.maxSize {
		return fmt.Errorf("%s exceeds %d bytes: %w", name, s.maxSize, ErrTooLarge)
	}
	if err := s.client.Set(ctx, s.key(name), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("putting %s: %w", name, err)
	}
	s.logger.Debug("artifact stored", zap.String("name", name), zap.Int("bytes", len(data)))
	return nil
}

func (s *Redis) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Redis) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, s.key(name)).Result()
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *Redis) List(ctx context.Context, pattern string) ([]string, error) {
	var names []string
	iter := s.client.Scan(ctx, 0, s.prefix+pattern, 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("listing %q: %w", pattern, err)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the client.
func (s *Redis) Close() error {
	return s.client.Close()
}
