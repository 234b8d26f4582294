package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
)

// StandingsCache keeps the latest ordered standings of each tournament.
// The sorted set orders user IDs by rank and a hash holds each entry.
type StandingsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStandingsCache creates a new Redis standings cache
func NewStandingsCache(cfg *config.RedisConfig, logger *slog.Logger) (*StandingsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &StandingsCache{
		client: client,
		ttl:    cfg.StandingsTTL,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *StandingsCache) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *StandingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// standingsKey returns the Redis key of a tournament's rank-ordered sorted set
func standingsKey(tournamentID string) string {
	return fmt.Sprintf("tournament:%s:standings", tournamentID)
}

// entriesKey returns the Redis key of a tournament's entry hash
func entriesKey(tournamentID string) string {
	return fmt.Sprintf("tournament:%s:entries", tournamentID)
}

// ReplaceStandings swaps the cached standings for entries in one transaction.
// Entries without a rank are skipped.
func (c *StandingsCache) ReplaceStandings(ctx context.Context, tournamentID string, entries []domain.RankingEntry) error {
	members, fields, err := encodeStandings(entries)
	if err != nil {
		return err
	}

	zkey, hkey := standingsKey(tournamentID), entriesKey(tournamentID)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, zkey, hkey)
	if len(members) > 0 {
		pipe.ZAdd(ctx, zkey, members...)
		pipe.HSet(ctx, hkey, fields)
		if c.ttl > 0 {
			pipe.Expire(ctx, zkey, c.ttl)
			pipe.Expire(ctx, hkey, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing standings: %w", err)
	}

	c.logger.Debug("cached standings",
		"tournament_id", tournamentID,
		"entries", len(members),
	)
	return nil
}

// TopStandings returns the first limit cached entries in rank order.
// A tournament that was never cached yields an empty slice.
func (c *StandingsCache) TopStandings(ctx context.Context, tournamentID string, limit int) ([]domain.RankingEntry, error) {
	if limit <= 0 {
		return []domain.RankingEntry{}, nil
	}

	userIDs, err := c.client.ZRange(ctx, standingsKey(tournamentID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading standings: %w", err)
	}
	if len(userIDs) == 0 {
		return []domain.RankingEntry{}, nil
	}

	raw, err := c.client.HMGet(ctx, entriesKey(tournamentID), userIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading standing entries: %w", err)
	}

	return decodeStandings(raw)
}

// Invalidate drops a tournament's cached standings
func (c *StandingsCache) Invalidate(ctx context.Context, tournamentID string) error {
	if err := c.client.Del(ctx, standingsKey(tournamentID), entriesKey(tournamentID)).Err(); err != nil {
		return fmt.Errorf("invalidating standings: %w", err)
	}
	return nil
}

func encodeStandings(entries []domain.RankingEntry) ([]redis.Z, map[string]any, error) {
	members := make([]redis.Z, 0, len(entries))
	fields := make(map[string]any, len(entries))

	for _, e := range entries {
		if e.Rank == nil {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding standing of %s: %w", e.UserID, err)
		}
		members = append(members, redis.Z{Score: float64(*e.Rank), Member: e.UserID})
		fields[e.UserID] = string(data)
	}
	return members, fields, nil
}

// decodeStandings skips hash slots that expired or were never written
func decodeStandings(raw []any) ([]domain.RankingEntry, error) {
	entries := make([]domain.RankingEntry, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry domain.RankingEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			return nil, fmt.Errorf("decoding standing entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
