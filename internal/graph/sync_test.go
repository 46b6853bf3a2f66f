package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

// memoryStore collects synced records in memory.
type memoryStore struct {
	pools     []model.Pool
	positions []model.Position
	swaps     []model.Swap
	state     map[string]uint64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{state: make(map[string]uint64)}
}

func (m *memoryStore) UpsertPools(_ context.Context, pools []model.Pool) error {
	m.pools = append(m.pools, pools...)
	return nil
}

func (m *memoryStore) UpsertPositions(_ context.Context, positions []model.Position) error {
	m.positions = append(m.positions, positions...)
	return nil
}

func (m *memoryStore) UpsertSwaps(_ context.Context, swaps []model.Swap) error {
	m.swaps = append(m.swaps, swaps...)
	return nil
}

func (m *memoryStore) LoadState(_ context.Context, name string) (uint64, bool, error) {
	ts, ok := m.state[name]
	return ts, ok, nil
}

func (m *memoryStore) SaveState(_ context.Context, name string, ts uint64) error {
	m.state[name] = ts
	return nil
}

func newGraphServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		skip, _ := req.Variables["skip"].(float64)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.Contains(req.Query, "pools("):
			if skip > 0 {
				w.Write([]byte(`{"data":{"pools":[]}}`))
				return
			}
			w.Write([]byte(`{"data":{"pools":[{
				"id":"0xpool",
				"feeTier":"3000",
				"token0":{"id":"0xtoken0"},
				"token1":{"id":"0xtoken1"},
				"createdAtTimestamp":"1690000000"
			}]}}`))
		case strings.Contains(req.Query, "positions("):
			if skip > 0 {
				w.Write([]byte(`{"data":{"positions":[]}}`))
				return
			}
			w.Write([]byte(`{"data":{"positions":[{
				"id":"42",
				"owner":"0xowner",
				"liquidity":"1000000",
				"tickLower":{"tickIdx":"-1000"},
				"tickUpper":{"tickIdx":"1000"},
				"pool":{"id":"0xpool"},
				"transaction":{"timestamp":"1700000000"}
			}]}}`))
		case strings.Contains(req.Query, "swaps("):
			if skip > 0 {
				w.Write([]byte(`{"data":{"swaps":[]}}`))
				return
			}
			w.Write([]byte(`{"data":{"swaps":[
				{"id":"s1","amount0":"100.5","amount1":"-99.2","timestamp":"1700000100",
				 "pool":{"id":"0xpool"},"transaction":{"id":"0xtx1"}},
				{"id":"s2","amount0":"-50","amount1":"51","timestamp":"1700000200",
				 "pool":{"id":"0xpool"},"transaction":{"id":"0xtx2"}}
			]}}`))
		default:
			t.Errorf("unexpected query: %s", req.Query)
			http.Error(w, "unknown query", http.StatusBadRequest)
		}
	}))
}

func TestSyncOnce(t *testing.T) {
	server := newGraphServer(t)
	defer server.Close()

	store := newMemoryStore()
	syncer := NewSyncer(SyncConfig{PageSize: 100}, NewClient(server.URL), store, nil)

	if err := syncer.SyncOnce(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if len(store.pools) != 1 {
		t.Fatalf("expected 1 pool, got %d", len(store.pools))
	}
	pool := store.pools[0]
	if pool.PoolID != "0xpool" || pool.FeeTier != 3000 || pool.TickSpacing != 60 {
		t.Fatalf("unexpected pool: %+v", pool)
	}
	if pool.Token0 != "0xtoken0" || pool.Token1 != "0xtoken1" {
		t.Fatalf("unexpected pool tokens: %+v", pool)
	}

	if len(store.positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(store.positions))
	}
	position := store.positions[0]
	if position.NFTID != "42" || position.Owner != "0xowner" || position.PoolID != "0xpool" {
		t.Fatalf("unexpected position: %+v", position)
	}
	if position.TickLower != -1000 || position.TickUpper != 1000 {
		t.Fatalf("unexpected ticks: %+v", position)
	}
	if !position.Liquidity.Equal(decimal.NewFromInt(1000000)) {
		t.Fatalf("unexpected liquidity: %s", position.Liquidity)
	}

	if len(store.swaps) != 2 {
		t.Fatalf("expected 2 swaps, got %d", len(store.swaps))
	}
	if store.swaps[0].TxHash != "0xtx1" || store.swaps[1].TxHash != "0xtx2" {
		t.Fatalf("unexpected swaps: %+v", store.swaps)
	}

	// Cursor advances to the newest swap timestamp.
	if ts := store.state[swapCursorName]; ts != 1700000200 {
		t.Fatalf("expected cursor 1700000200, got %d", ts)
	}
}

func TestSyncGraphError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":[{"message":"rate limited"}]}`))
	}))
	defer server.Close()

	syncer := NewSyncer(SyncConfig{PageSize: 100}, NewClient(server.URL), newMemoryStore(), nil)
	if err := syncer.SyncOnce(context.Background()); err == nil {
		t.Fatalf("expected error from graph response")
	}
}
