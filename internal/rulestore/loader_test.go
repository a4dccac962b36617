package rulestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pos-pricing/internal/rules"
)

type stubSource struct {
	rules []rules.Rule
	err   error
	calls int
}

func (s *stubSource) ActiveRules(context.Context, rules.Context) ([]rules.Rule, error) {
	s.calls++
	return s.rules, s.err
}

func testSnapshot(t *testing.T) (*Snapshot, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshot(client, time.Minute), mr
}

func TestLoaderWarmsSnapshotOnSuccess(t *testing.T) {
	snap, _ := testSnapshot(t)
	src := &stubSource{rules: []rules.Rule{{Name: "promo", ItemCode: "SKU-1", Value: 10}}}
	l := &Loader{Store: src, Snapshot: snap, Log: zerolog.Nop()}

	got, err := l.Rules(context.Background(), rules.Context{Company: "Acme"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	cached, ok, err := snap.Get(context.Background(), "Acme")
	require.NoError(t, err)
	require.True(t, ok, "successful load must write the snapshot")
	require.Equal(t, "promo", cached[0].Name)
}

func TestLoaderFallsBackToSnapshot(t *testing.T) {
	snap, _ := testSnapshot(t)
	src := &stubSource{rules: []rules.Rule{{Name: "promo", ItemCode: "SKU-1", Value: 10}}}
	l := &Loader{Store: src, Snapshot: snap, Log: zerolog.Nop()}

	_, err := l.Rules(context.Background(), rules.Context{Company: "Acme"})
	require.NoError(t, err)

	src.err = errors.New("connection refused")
	got, err := l.Rules(context.Background(), rules.Context{Company: "Acme"})
	require.NoError(t, err, "snapshot must cover a database outage")
	require.Len(t, got, 1)
	require.Equal(t, "promo", got[0].Name)
}

func TestLoaderErrorsWhenBothSourcesFail(t *testing.T) {
	snap, _ := testSnapshot(t)
	src := &stubSource{err: errors.New("connection refused")}
	l := &Loader{Store: src, Snapshot: snap, Log: zerolog.Nop()}

	_, err := l.Rules(context.Background(), rules.Context{Company: "Acme"})
	require.Error(t, err)
}

func TestLoaderLoadBuildsIndex(t *testing.T) {
	snap, _ := testSnapshot(t)
	src := &stubSource{rules: []rules.Rule{
		{Name: "a", ItemCode: "SKU-1"},
		{Name: "b", Brand: "Acme"},
	}}
	l := &Loader{Store: src, Snapshot: snap, Log: zerolog.Nop()}

	idx, err := l.Load(context.Background(), rules.Context{})
	require.NoError(t, err)
	require.Equal(t, 2, idx.Size())
}

func TestLoaderImportRaw(t *testing.T) {
	snap, _ := testSnapshot(t)
	l := &Loader{Store: &stubSource{err: errors.New("db not up yet")}, Snapshot: snap, Log: zerolog.Nop()}

	raw := []byte(`[
		{"name":"seeded","item_code":"SKU-1","discount_type":"Percentage","rate_or_discount":"10"},
		{"name":"","item_code":"dropped"}
	]`)
	n, err := l.ImportRaw(context.Background(), "Acme", raw)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The seeded snapshot covers lookups before the database is reachable.
	got, err := l.Rules(context.Background(), rules.Context{Company: "Acme"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "seeded", got[0].Name)
	require.Equal(t, rules.KindDiscountPercentage, got[0].Kind)
	require.Equal(t, 10.0, got[0].Value)

	_, err = l.ImportRaw(context.Background(), "Acme", []byte("not json"))
	require.Error(t, err)
}

func TestLoaderRefresh(t *testing.T) {
	snap, _ := testSnapshot(t)
	src := &stubSource{rules: []rules.Rule{{Name: "promo"}}}
	l := &Loader{Store: src, Snapshot: snap, Log: zerolog.Nop()}

	n, err := l.Refresh(context.Background(), rules.Context{Company: "Acme"})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, ok, err := snap.Get(context.Background(), "Acme")
	require.NoError(t, err)
	require.True(t, ok)
}
