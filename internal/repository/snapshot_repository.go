package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/classpulse/attendance-core/internal/models"
)

// SnapshotRepository keeps the previous classification run per scope in
// Redis. The snapshot only powers tier-transition detection; losing it
// degrades to "no transitions reported", never to wrong classifications.
type SnapshotRepository struct {
	client *redis.Client
}

// NewSnapshotRepository constructs the repository.
func NewSnapshotRepository(client *redis.Client) *SnapshotRepository {
	return &SnapshotRepository{client: client}
}

func snapshotKey(scope string) string {
	return fmt.Sprintf("risk:snapshot:%s", scope)
}

// Get loads the previous tier per student for a scope. A missing snapshot
// returns an empty map.
func (r *SnapshotRepository) Get(ctx context.Context, scope string) (map[string]models.RiskTier, error) {
	raw, err := r.client.HGetAll(ctx, snapshotKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("load tier snapshot: %w", err)
	}
	tiers := make(map[string]models.RiskTier, len(raw))
	for studentID, tier := range raw {
		tiers[studentID] = models.RiskTier(tier)
	}
	return tiers, nil
}

// Put replaces the snapshot for a scope.
func (r *SnapshotRepository) Put(ctx context.Context, scope string, tiers map[string]models.RiskTier, ttl time.Duration) error {
	key := snapshotKey(scope)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(tiers) > 0 {
		fields := make(map[string]interface{}, len(tiers))
		for studentID, tier := range tiers {
			fields[studentID] = string(tier)
		}
		pipe.HSet(ctx, key, fields)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store tier snapshot: %w", err)
	}
	return nil
}
