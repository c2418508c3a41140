package consent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
)

const (
	// RedisKeyPrefix namespaces decision keys inside the consent database.
	RedisKeyPrefix = "consent:decision:"

	// DefaultRedisTimeout bounds each store call when no timeout is configured.
	DefaultRedisTimeout = 5 * time.Second
)

// redisRecord is the value stored under each decision key.
type redisRecord struct {
	Decision  string    `json:"decision"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	DecidedAt time.Time `json:"decidedAt"`
}

// RedisStore shares decisions between bot replicas through Redis.
// SET NX keeps the first decision final even when replicas race.
type RedisStore struct {
	client  rueidis.Client
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTimeout bounds every Get and Record call. Non-positive values keep
// the default.
func WithTimeout(timeout time.Duration) RedisOption {
	return func(s *RedisStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// NewRedisStore creates a store backed by the given client.
func NewRedisStore(client rueidis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:  client,
		timeout: DefaultRedisTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get loads the decision for the user. Missing keys are DecisionUnset.
func (s *RedisStore) Get(ctx context.Context, userID int64) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.get(ctx, userID)
}

func (s *RedisStore) get(ctx context.Context, userID int64) (Decision, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(redisKey(userID)).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return DecisionUnset, nil
		}

		return DecisionUnset, fmt.Errorf("failed to get decision: %w", err)
	}

	var record redisRecord
	if err := sonic.Unmarshal(data, &record); err != nil {
		return DecisionUnset, fmt.Errorf("failed to decode decision: %w", err)
	}

	return ParseDecision(record.Decision)
}

// Record stores the decision unless one already exists.
func (s *RedisStore) Record(ctx context.Context, identity Identity, decision Decision, at time.Time) (Decision, bool, error) {
	if !decision.IsFinal() {
		return DecisionUnset, false, ErrInvalidDecision
	}

	payload, err := sonic.Marshal(redisRecord{
		Decision:  decision.String(),
		Username:  identity.Username,
		FullName:  identity.FullName,
		DecidedAt: at.UTC(),
	})
	if err != nil {
		return DecisionUnset, false, fmt.Errorf("failed to encode decision: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := s.client.B().Set().Key(redisKey(identity.ID)).Value(string(payload)).Nx().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		if !rueidis.IsRedisNil(err) {
			return DecisionUnset, false, fmt.Errorf("failed to record decision: %w", err)
		}

		// Key already present
		current, err := s.get(ctx, identity.ID)

		return current, false, err
	}

	return decision, true, nil
}

func redisKey(userID int64) string {
	return RedisKeyPrefix + strconv.FormatInt(userID, 10)
}
