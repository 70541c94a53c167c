package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/edutools-backend/internal/platform/logger"
)

const defaultKeyPrefix = "edutools:job:"

// record is the stored form of a Job; the API form hides some fields.
type record struct {
	ID          string    `json:"id"`
	ToolID      string    `json:"tool_id"`
	Status      Status    `json:"status"`
	Prompt      string    `json:"prompt"`
	Error       string    `json:"error,omitempty"`
	ErrorStatus int       `json:"error_status,omitempty"`
	ArtifactKey string    `json:"artifact_key,omitempty"`
	MimeType    string    `json:"mime_type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func toRecord(j *Job) record { return record(*j) }

func (r record) job() *Job {
	j := Job(r)
	return &j
}

type RedisStore struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
	owned  bool
}

// NewRedisStore dials addr and pings it.
func NewRedisStore(ctx context.Context, log *logger.Logger, addr string) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	s := NewRedisStoreWithClient(log, rdb, "")
	s.owned = true
	return s, nil
}

// NewRedisStoreWithClient uses an existing client. Close leaves the client open.
func NewRedisStoreWithClient(log *logger.Logger, rdb *goredis.Client, prefix string) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{log: log.With("store", "RedisJobStore"), rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Client() *goredis.Client { return s.rdb }

func (s *RedisStore) key(id string) string { return s.prefix + id }

func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	raw, ttl, err := s.encode(job)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(job.ID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis create job: %w", err)
	}
	if !ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get job: %w", err)
	}
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	j := r.job()
	if j.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return j, nil
}

// Update overwrites an existing job, keeping its expiry.
func (s *RedisStore) Update(ctx context.Context, job *Job) error {
	raw, ttl, err := s.encode(job)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, s.key(job.ID), raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis update job: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) encode(job *Job) ([]byte, time.Duration, error) {
	raw, err := json.Marshal(toRecord(job))
	if err != nil {
		return nil, 0, fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	ttl := time.Duration(0)
	if !job.ExpiresAt.IsZero() {
		ttl = time.Until(job.ExpiresAt)
		if ttl <= 0 {
			ttl = time.Second
		}
	}
	return raw, ttl, nil
}
