package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/pos-pricing/internal/rules"
)

// Snapshot caches the fanned-out rule set in Redis so a database outage
// does not stop pricing. Keys are scoped per company so multi-company
// deployments do not mix rule sets.
type Snapshot struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshot constructs a Snapshot cache. A nil client disables it.
func NewSnapshot(client *redis.Client, ttl time.Duration) *Snapshot {
	return &Snapshot{client: client, ttl: ttl}
}

func snapshotKey(company string) string {
	if company == "" {
		company = "_"
	}
	return "rules:snapshot:" + company
}

// Get returns the cached rule set for the company, if present.
func (s *Snapshot) Get(ctx context.Context, company string) ([]rules.Rule, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, nil
	}
	data, err := s.client.Get(ctx, snapshotKey(company)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read rule snapshot: %w", err)
	}
	var out []rules.Rule
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, false, fmt.Errorf("decode rule snapshot: %w", err)
	}
	return out, true, nil
}

// Put stores the rule set with the configured TTL.
func (s *Snapshot) Put(ctx context.Context, company string, rs []rules.Rule) error {
	if s == nil || s.client == nil {
		return nil
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("encode rule snapshot: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(company), data, s.ttl).Err()
}
