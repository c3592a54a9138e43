package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keySessionPrefix = "anonrelay:session:"
	keyOperatorReply = "anonrelay:operator_reply"
)

// RedisStore keeps session state in Redis so pending flows survive a
// restart. Keys expire after ttl; an expired key reads as idle/inactive.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(participantID int64) string {
	return keySessionPrefix + strconv.FormatInt(participantID, 10)
}

func (r *RedisStore) Get(ctx context.Context, participantID int64) (State, error) {
	v, err := r.client.Get(ctx, sessionKey(participantID)).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, err
	}
	return State(v), nil
}

func (r *RedisStore) Set(ctx context.Context, participantID int64, st State) error {
	if st == StateIdle || st == "" {
		return r.client.Del(ctx, sessionKey(participantID)).Err()
	}
	return r.client.Set(ctx, sessionKey(participantID), string(st), r.ttl).Err()
}

// Operator decodes the "<target>:<ref>" value of the reply slot.
func (r *RedisStore) Operator(ctx context.Context) (OperatorState, error) {
	v, err := r.client.Get(ctx, keyOperatorReply).Result()
	if errors.Is(err, redis.Nil) {
		return Inactive, nil
	}
	if err != nil {
		return Inactive, err
	}
	a, err := decodeAction(v)
	if err != nil {
		return Inactive, err
	}
	return AwaitingReplyText(a), nil
}

func (r *RedisStore) SetOperator(ctx context.Context, st OperatorState) error {
	if !st.Awaiting() {
		return r.client.Del(ctx, keyOperatorReply).Err()
	}
	v := fmt.Sprintf("%d:%d", st.Target.TargetID, st.Target.RefID)
	return r.client.Set(ctx, keyOperatorReply, v, r.ttl).Err()
}

func decodeAction(v string) (Action, error) {
	target, ref, ok := strings.Cut(v, ":")
	if !ok {
		return Action{}, fmt.Errorf("session: malformed operator reply %q", v)
	}
	t, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("session: malformed reply target: %w", err)
	}
	r, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("session: malformed reply ref: %w", err)
	}
	return Action{TargetID: t, RefID: r}, nil
}
