package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/birthday-stream/internal/model"
)

const (
	progressPrefix  = "submission_progress:"
	localEntriesKey = "local_approved_kids"
)

var ErrProgressNotFound = errors.New("progress not found")

// NewClient connects to Redis and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// Repo keeps per-submission progress and the approved entries that could
// not be written to Postgres.
type Repo struct {
	Client      *redis.Client
	progressTTL time.Duration
}

// NewRepo creates a Repo. Progress snapshots expire after progressTTL.
func NewRepo(client *redis.Client, progressTTL time.Duration) *Repo {
	return &Repo{Client: client, progressTTL: progressTTL}
}

func (r *Repo) SetProgress(ctx context.Context, id uuid.UUID, p model.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	return r.Client.Set(ctx, progressPrefix+id.String(), data, r.progressTTL).Err()
}

func (r *Repo) GetProgress(ctx context.Context, id uuid.UUID) (model.Progress, error) {
	data, err := r.Client.Get(ctx, progressPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Progress{}, ErrProgressNotFound
		}
		return model.Progress{}, fmt.Errorf("get progress: %w", err)
	}

	var p model.Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Progress{}, fmt.Errorf("unmarshal progress: %w", err)
	}

	return p, nil
}

// SaveLocalEntry stores an entry keyed by its ID, replacing any previous copy.
func (r *Repo) SaveLocalEntry(ctx context.Context, e model.ApprovedEntry) error {
	e.Local = true

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	return r.Client.HSet(ctx, localEntriesKey, e.ID.String(), data).Err()
}

// LocalEntries returns all locally stored entries, newest first.
func (r *Repo) LocalEntries(ctx context.Context) ([]model.ApprovedEntry, error) {
	values, err := r.Client.HGetAll(ctx, localEntriesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get local entries: %w", err)
	}

	entries := make([]model.ApprovedEntry, 0, len(values))
	for id, v := range values {
		var e model.ApprovedEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("unmarshal local entry %s: %w", id, err)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ApprovedAt.After(entries[j].ApprovedAt)
	})

	return entries, nil
}
