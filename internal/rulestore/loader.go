package rulestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-pricing/internal/rules"
)

// RuleSource is the database side of the loader.
type RuleSource interface {
	ActiveRules(ctx context.Context, rctx rules.Context) ([]rules.Rule, error)
}

// Loader assembles the rule index for a session context. The database is
// authoritative; the Redis snapshot is both a warm path and a fallback
// when the database is unreachable.
type Loader struct {
	Store    RuleSource
	Snapshot *Snapshot
	Log      zerolog.Logger
}

// Rules fetches the active rule slice. On database failure it falls back
// to the last snapshot; the error is returned only when neither source
// can serve.
func (l *Loader) Rules(ctx context.Context, rctx rules.Context) ([]rules.Rule, error) {
	rs, err := l.Store.ActiveRules(ctx, rctx)
	if err == nil {
		if serr := l.Snapshot.Put(ctx, rctx.Company, rs); serr != nil {
			l.Log.Warn().Err(serr).Msg("rule snapshot write failed")
		}
		return rs, nil
	}
	l.Log.Warn().Err(err).Msg("rule fetch failed, trying snapshot")

	cached, ok, serr := l.Snapshot.Get(ctx, rctx.Company)
	if serr != nil {
		l.Log.Warn().Err(serr).Msg("rule snapshot read failed")
	}
	if !ok {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return cached, nil
}

// Load builds the index over the active rules.
func (l *Loader) Load(ctx context.Context, rctx rules.Context) (*rules.Index, error) {
	rs, err := l.Rules(ctx, rctx)
	if err != nil {
		return nil, err
	}
	return rules.NewIndex(rs), nil
}

// ImportRaw decodes an externally produced raw snapshot, normalises it and
// stores it as the company's offline snapshot. Used to seed the cache
// before the database is reachable.
func (l *Loader) ImportRaw(ctx context.Context, company string, data []byte) (int, error) {
	var raws []rules.Raw
	if err := json.Unmarshal(data, &raws); err != nil {
		return 0, fmt.Errorf("decode raw snapshot: %w", err)
	}
	rs := rules.Normalize(raws)
	if err := l.Snapshot.Put(ctx, company, rs); err != nil {
		return 0, err
	}
	return len(rs), nil
}

// Refresh re-reads the rules from the database and rewrites the snapshot.
// Used by the background worker so sessions start from a warm cache.
func (l *Loader) Refresh(ctx context.Context, rctx rules.Context) (int, error) {
	rs, err := l.Store.ActiveRules(ctx, rctx)
	if err != nil {
		return 0, err
	}
	if err := l.Snapshot.Put(ctx, rctx.Company, rs); err != nil {
		return 0, err
	}
	return len(rs), nil
}
