package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/geoguess/internal/model"
	"github.com/mcoot/geoguess/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Participant operations

func (s *Storage) SaveParticipant(ctx context.Context, participant *model.Participant) error {
	data, err := json.Marshal(participant)
	if err != nil {
		return err
	}
	// Participants are permanent; IsOperator must survive restarts
	return s.client.Set(ctx, participantKey(participant.ID()), data, 0).Err()
}

func (s *Storage) GetParticipant(ctx context.Context, id model.ExternalID) (*model.Participant, error) {
	data, err := s.client.Get(ctx, participantKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrParticipantNotFound
		}
		return nil, err
	}

	var participant model.Participant
	if err := json.Unmarshal(data, &participant); err != nil {
		return nil, err
	}
	return &participant, nil
}

// Session operations

func (s *Storage) SaveSession(ctx context.Context, handle model.SessionHandle, id model.ExternalID) error {
	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(handle), strconv.FormatInt(int64(id), 10), s.cfg.SessionTTL)
	pipe.SAdd(ctx, sessionsIndexKey(), string(handle))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, handle model.SessionHandle) (model.ExternalID, error) {
	// A binding in use slides its expiry forward
	var cmd *redis.StringCmd
	if s.cfg.SessionTTL > 0 {
		cmd = s.client.GetEx(ctx, sessionKey(handle), s.cfg.SessionTTL)
	} else {
		cmd = s.client.Get(ctx, sessionKey(handle))
	}
	raw, err := cmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, model.ErrNotAuthenticated
		}
		return 0, err
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return model.ExternalID(id), nil
}

func (s *Storage) DeleteSession(ctx context.Context, handle model.SessionHandle) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(handle))
	pipe.SRem(ctx, sessionsIndexKey(), string(handle))
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) ListSessions(ctx context.Context) (map[model.SessionHandle]model.ExternalID, error) {
	handles, err := s.client.SMembers(ctx, sessionsIndexKey()).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[model.SessionHandle]model.ExternalID, len(handles))
	if len(handles) == 0 {
		return result, nil
	}

	keys := make([]string, len(handles))
	for i, h := range handles {
		keys[i] = sessionKey(model.SessionHandle(h))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var expired []interface{}
	for i, val := range values {
		str, ok := val.(string)
		if !ok {
			// Binding expired; prune the index entry below
			expired = append(expired, handles[i])
			continue
		}
		id, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			continue // Skip invalid data
		}
		result[model.SessionHandle(handles[i])] = model.ExternalID(id)
	}

	if len(expired) > 0 {
		if err := s.client.SRem(ctx, sessionsIndexKey(), expired...).Err(); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// Round operations

func (s *Storage) NextRoundID(ctx context.Context) (model.RoundID, error) {
	id, err := s.client.Incr(ctx, roundSequenceKey()).Result()
	if err != nil {
		return 0, err
	}
	return model.RoundID(id), nil
}

func (s *Storage) SaveOpenRound(ctx context.Context, round *model.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, openRoundKey(), data, 0).Err()
}

func (s *Storage) GetOpenRound(ctx context.Context) (*model.Round, error) {
	data, err := s.client.Get(ctx, openRoundKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNoActiveRound
		}
		return nil, err
	}

	var round model.Round
	if err := json.Unmarshal(data, &round); err != nil {
		return nil, err
	}
	return &round, nil
}

func (s *Storage) ArchiveRound(ctx context.Context, round *model.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return err
	}

	// Closing and archiving must land together
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, openRoundKey())
	pipe.LPush(ctx, closedRoundsKey(), data)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListClosedRounds(ctx context.Context) ([]*model.Round, error) {
	values, err := s.client.LRange(ctx, closedRoundsKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	rounds := make([]*model.Round, 0, len(values))
	for _, val := range values {
		var round model.Round
		if err := json.Unmarshal([]byte(val), &round); err != nil {
			return nil, err
		}
		rounds = append(rounds, &round)
	}
	return rounds, nil
}
