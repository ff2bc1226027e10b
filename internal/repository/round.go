package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/rps-backend/internal/entity"
)

const defaultHistoryLimit = 50

type RoundRepository interface {
	Append(ctx context.Context, record *entity.RoundRecord) error
	ListByRoomID(ctx context.Context, roomID string, limit int64) ([]*entity.RoundRecord, error)
	DeleteByRoomID(ctx context.Context, roomID string) error
}

type dbRound struct {
	client *redis.Client
	limit  int64
	ttl    time.Duration
}

// NewRoundRepository - keeps at most limit rounds per room; every write refreshes the key's ttl.
func NewRoundRepository(client *redis.Client, limit int64, ttl time.Duration) RoundRepository {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return &dbRound{
		client: client,
		limit:  limit,
		ttl:    ttl,
	}
}

func roundsKey(roomID string) string {
	return "room:" + roomID + ":rounds"
}

// Append - pushes the newest round to the head of the room's list.
func (that *dbRound) Append(ctx context.Context, record *entity.RoundRecord) error {
	recordJSON, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal round: %w", err)
	}

	key := roundsKey(record.RoomID)

	pipe := that.client.TxPipeline()
	pipe.LPush(ctx, key, recordJSON)
	pipe.LTrim(ctx, key, 0, that.limit-1)
	if that.ttl > 0 {
		pipe.Expire(ctx, key, that.ttl)
	}

	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append round: %w", err)
	}

	return nil
}

// ListByRoomID - returns up to limit rounds, newest first.
func (that *dbRound) ListByRoomID(ctx context.Context, roomID string, limit int64) ([]*entity.RoundRecord, error) {
	if limit <= 0 || limit > that.limit {
		limit = that.limit
	}

	response, err := that.client.LRange(ctx, roundsKey(roomID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rounds by room id: %w", err)
	}

	records := make([]*entity.RoundRecord, 0, len(response))
	for _, item := range response {
		var record entity.RoundRecord
		if err = json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round: %w", err)
		}

		records = append(records, &record)
	}

	return records, nil
}

func (that *dbRound) DeleteByRoomID(ctx context.Context, roomID string) error {
	if err := that.client.Del(ctx, roundsKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete rounds by room id: %w", err)
	}

	return nil
}
