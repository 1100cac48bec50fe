package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/thanhnp/pow-ledger/internal/api/handlers"
	"github.com/thanhnp/pow-ledger/internal/models"
	"github.com/thanhnp/pow-ledger/internal/notifier"
	"github.com/thanhnp/pow-ledger/internal/registry"
	"github.com/thanhnp/pow-ledger/internal/storage"
)

type testServer struct {
	t        *testing.T
	registry *registry.Registry
	router   *Router
}

func newTestServer(t *testing.T, miningTimeout time.Duration) *testServer {
	t.Helper()

	db, err := storage.NewPebbleDB(1 << 20)
	if err != nil {
		t.Fatalf("NewPebbleDB: %v", err)
	}
	stores := storage.NewStores(db)
	reg := registry.New(context.Background(), notifier.NewHub(), stores)
	t.Cleanup(func() {
		reg.Close()
		stores.Close()
	})

	defaults := handlers.ChainDefaults{Difficulty: 2, GenesisTransactions: []string{"Genesis Block"}}
	return &testServer{t: t, registry: reg, router: NewRouter(reg, defaults, miningTimeout)}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.Engine().ServeHTTP(rec, req)
	return rec
}

func (s *testServer) flush(id string) {
	s.t.Helper()
	entry, err := s.registry.Get(id)
	if err != nil {
		s.t.Fatalf("registry.Get: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := entry.Indexer.Flush(ctx); err != nil {
		s.t.Fatalf("Flush: %v", err)
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func (s *testServer) createChain(body any) models.ChainSummary {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/chains", body)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("create chain: %d %s", rec.Code, rec.Body.String())
	}
	return decode[models.ChainSummary](s.t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, 0)
	rec := s.do(http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("health = %d %s", rec.Code, rec.Body.String())
	}
}

func TestEndToEndOverHTTP(t *testing.T) {
	s := newTestServer(t, 0)

	chain := s.createChain(nil)
	if chain.Difficulty != 2 || chain.Length != 1 {
		t.Fatalf("created chain = %+v", chain)
	}
	base := "/api/v1/chains/" + chain.ID

	for _, txs := range [][]string{{"A→B:10"}, {"B→C:5", "C→D:2"}} {
		rec := s.do(http.MethodPost, base+"/blocks", map[string]any{"transactions": txs})
		if rec.Code != http.StatusCreated {
			t.Fatalf("append: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := s.do(http.MethodGet, base+"/blocks", nil)
	snap := decode[[]models.Block](t, rec)
	if len(snap) != 3 {
		t.Fatalf("len(snapshot) = %d, want 3", len(snap))
	}
	for i := 1; i < 3; i++ {
		if snap[i].PreviousHash != snap[i-1].Hash {
			t.Errorf("block %d not linked", i)
		}
		if !strings.HasPrefix(snap[i].Hash, "00") {
			t.Errorf("block %d hash %s", i, snap[i].Hash)
		}
	}

	rec = s.do(http.MethodGet, base+"/validate", nil)
	if res := decode[models.ValidationResult](t, rec); !res.Valid {
		t.Fatalf("validate = %+v", res)
	}

	s.flush(chain.ID)

	rec = s.do(http.MethodGet, base+"/blocks/latest", nil)
	if latest := decode[models.Block](t, rec); latest.Hash != snap[2].Hash {
		t.Fatalf("latest = %+v", latest)
	}
	rec = s.do(http.MethodGet, base+"/blocks/height/1", nil)
	if b := decode[models.Block](t, rec); b.Hash != snap[1].Hash {
		t.Fatalf("height 1 = %+v", b)
	}
	rec = s.do(http.MethodGet, base+"/blocks/"+snap[0].Hash, nil)
	if b := decode[models.Block](t, rec); b.Index != 0 || b.PreviousHash != "0" {
		t.Fatalf("genesis by hash = %+v", b)
	}
}

func TestCreateChainWithOptions(t *testing.T) {
	s := newTestServer(t, 0)

	chain := s.createChain(map[string]any{"difficulty": 0, "genesis_transactions": []string{}})
	if chain.Difficulty != 0 {
		t.Fatalf("difficulty = %d, want 0", chain.Difficulty)
	}

	rec := s.do(http.MethodPost, "/api/v1/chains/"+chain.ID+"/blocks", map[string]any{"transactions": []string{}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("append: %d %s", rec.Code, rec.Body.String())
	}
	if b := decode[models.Block](t, rec); b.Nonce != 0 || b.Chain != chain.ID {
		t.Fatalf("zero difficulty block = %+v", b)
	}
}

func TestCreateChainInvalidDifficulty(t *testing.T) {
	s := newTestServer(t, 0)
	rec := s.do(http.MethodPost, "/api/v1/chains", map[string]any{"difficulty": 65})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestListAndDeleteChains(t *testing.T) {
	s := newTestServer(t, 0)
	a := s.createChain(nil)
	s.createChain(nil)

	rec := s.do(http.MethodGet, "/api/v1/chains", nil)
	if list := decode[[]models.ChainSummary](t, rec); len(list) != 2 {
		t.Fatalf("list = %+v", list)
	}

	rec = s.do(http.MethodDelete, "/api/v1/chains/"+a.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = s.do(http.MethodGet, "/api/v1/chains/"+a.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted = %d, want 404", rec.Code)
	}
}

func TestUnknownChainAndBlock(t *testing.T) {
	s := newTestServer(t, 0)

	if rec := s.do(http.MethodGet, "/api/v1/chains/nope/blocks", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown chain = %d, want 404", rec.Code)
	}

	chain := s.createChain(nil)
	base := "/api/v1/chains/" + chain.ID
	s.flush(chain.ID)

	if rec := s.do(http.MethodGet, base+"/blocks/deadbeef", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown hash = %d, want 404", rec.Code)
	}
	if rec := s.do(http.MethodGet, base+"/blocks/height/x", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad height = %d, want 400", rec.Code)
	}
	if rec := s.do(http.MethodGet, base+"/blocks/height/9", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing height = %d, want 404", rec.Code)
	}
}

func TestAppendInvalidBody(t *testing.T) {
	s := newTestServer(t, 0)
	chain := s.createChain(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chains/"+chain.ID+"/blocks", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.Engine().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}

func TestAppendMiningTimeout(t *testing.T) {
	s := newTestServer(t, 50*time.Millisecond)
	chain := s.createChain(map[string]any{"difficulty": 64})

	rec := s.do(http.MethodPost, "/api/v1/chains/"+chain.ID+"/blocks", map[string]any{"transactions": []string{"tx"}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, want 503", rec.Code)
	}

	rec = s.do(http.MethodGet, "/api/v1/chains/"+chain.ID, nil)
	if summary := decode[models.ChainSummary](t, rec); summary.Length != 1 {
		t.Fatalf("timed out append changed the chain: %+v", summary)
	}
}

func TestValidateReportsTampering(t *testing.T) {
	s := newTestServer(t, 0)
	chain := s.createChain(map[string]any{"difficulty": 1})
	base := "/api/v1/chains/" + chain.ID

	s.do(http.MethodPost, base+"/blocks", map[string]any{"transactions": []string{"A→B:10"}})

	// snapshots are copies, so tampering with one must not affect validation
	entry, _ := s.registry.Get(chain.ID)
	snap := entry.Chain.Snapshot()
	snap[1].Transactions[0] = "A→B:1000"

	rec := s.do(http.MethodGet, base+"/validate", nil)
	if res := decode[models.ValidationResult](t, rec); !res.Valid {
		t.Fatalf("validate = %+v", res)
	}
}

func TestBlockLookupsServeBlocksNotYetIndexed(t *testing.T) {
	s := newTestServer(t, 0)
	chain := s.createChain(map[string]any{"difficulty": 1})
	base := "/api/v1/chains/" + chain.ID

	s.flush(chain.ID)
	entry, _ := s.registry.Get(chain.ID)
	if err := entry.Indexer.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	rec := s.do(http.MethodPost, base+"/blocks", map[string]any{"transactions": []string{"A→B:10"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("append: %d %s", rec.Code, rec.Body.String())
	}
	appended := decode[models.Block](t, rec)

	rec = s.do(http.MethodGet, base+"/blocks/"+appended.Hash, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by hash = %d, want 200", rec.Code)
	}
	if b := decode[models.Block](t, rec); b.Index != 1 || b.Chain != chain.ID {
		t.Fatalf("by hash = %+v", b)
	}

	rec = s.do(http.MethodGet, base+"/blocks/height/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by height = %d, want 200", rec.Code)
	}
	if b := decode[models.Block](t, rec); b.Hash != appended.Hash {
		t.Fatalf("by height = %+v", b)
	}

	rec = s.do(http.MethodGet, base+"/blocks/latest", nil)
	if b := decode[models.Block](t, rec); b.Hash != appended.Hash {
		t.Fatalf("latest = %+v, want the chain tip", b)
	}
}
