package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwasomola/malipo/internal/adapter/handler"
	"github.com/mwasomola/malipo/internal/adapter/storage/memory"
	"github.com/mwasomola/malipo/internal/core/authorizer"
	"github.com/mwasomola/malipo/internal/core/domain"
	"github.com/mwasomola/malipo/internal/core/notifications"
	"github.com/mwasomola/malipo/internal/core/service"
)

type cachedResponse struct {
	status int
	body   []byte
}

// fakeKeyStore keeps cached responses in a map, mimicking the
// idempotency_keys table including ON CONFLICT DO NOTHING.
type fakeKeyStore struct {
	mu   sync.Mutex
	keys map[string]cachedResponse
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[string]cachedResponse)}
}

type fakeRow struct {
	entry cachedResponse
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = r.entry.status
	*dest[1].(*[]byte) = append([]byte(nil), r.entry.body...)
	return nil
}

func (f *fakeKeyStore) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry, ok := f.keys[args[0].(string)]; ok {
		return fakeRow{entry: entry}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeKeyStore) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Clone: fiber header strings alias a reusable request buffer, so a
	// retained map key would mutate once the next request arrives.
	key := strings.Clone(args[0].(string))
	if _, ok := f.keys[key]; !ok {
		f.keys[key] = cachedResponse{
			status: args[1].(int),
			body:   append([]byte(nil), args[2].([]byte)...),
		}
	}
	return pgconn.CommandTag{}, nil
}

// transferApp wires the create-transfer route behind the idempotency
// middleware, against the in-memory store and a scripted oracle.
func transferApp(t *testing.T, store *memory.Store, oracle http.HandlerFunc) *fiber.App {
	t.Helper()

	authSrv := httptest.NewServer(oracle)
	t.Cleanup(authSrv.Close)

	notifySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(notifySrv.Close)

	svc := service.NewSettlement(store, authorizer.New(authSrv.URL, 3, 0), notifications.New(notifySrv.URL))
	h := &handler.TransferHandler{Service: svc}

	app := fiber.New()
	app.Post("/v1/transfers", Idempotency(newFakeKeyStore()), h.CreateTransfer)
	return app
}

func seedPair(t *testing.T) (*memory.Store, *domain.Account, *domain.Account) {
	t.Helper()
	store := memory.NewStore()
	sender := &domain.Account{
		ID: uuid.New(), FirstName: "Asha", LastName: "Mushi",
		Email: "asha@example.com", Kind: domain.KindPersonal,
		Balance: decimal.RequireFromString("1000.00"), CreatedAt: time.Now().UTC(),
	}
	receiver := &domain.Account{
		ID: uuid.New(), FirstName: "Juma", LastName: "Bakari",
		Email: "juma@example.com", Kind: domain.KindPersonal,
		Balance: decimal.RequireFromString("500.00"), CreatedAt: time.Now().UTC(),
	}
	store.Seed(sender, receiver)
	return store, sender, receiver
}

func postTransfer(t *testing.T, app *fiber.App, key string, sender, receiver *domain.Account) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(fiber.Map{
		"amount":     "200.00",
		"senderId":   sender.ID.String(),
		"receiverId": receiver.ID.String(),
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/transfers", &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func approve(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"status":"success","data":{"authorization":true}}`))
}

func TestIdempotency_ReplaysCachedResponse(t *testing.T) {
	ctx := context.Background()
	store, sender, receiver := seedPair(t)
	app := transferApp(t, store, approve)

	first, firstBody := postTransfer(t, app, "key-1", sender, receiver)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	assert.Empty(t, first.Header.Get("X-Idempotency-Hit"))

	second, secondBody := postTransfer(t, app, "key-1", sender, receiver)
	assert.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("X-Idempotency-Hit"))
	assert.Equal(t, firstBody, secondBody, "the replay must return the original response verbatim")

	list, err := store.ListTransfers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1, "a repeated key must not settle a second transfer")

	acc, err := store.Account(ctx, sender.ID)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("800.00")), "the sender is debited exactly once")
}

func TestIdempotency_DistinctKeysSettleSeparately(t *testing.T) {
	ctx := context.Background()
	store, sender, receiver := seedPair(t)
	app := transferApp(t, store, approve)

	first, _ := postTransfer(t, app, "key-1", sender, receiver)
	second, _ := postTransfer(t, app, "key-2", sender, receiver)

	assert.Equal(t, http.StatusCreated, first.StatusCode)
	assert.Equal(t, http.StatusCreated, second.StatusCode)

	list, err := store.ListTransfers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	ctx := context.Background()
	store, sender, receiver := seedPair(t)
	app := transferApp(t, store, approve)

	postTransfer(t, app, "", sender, receiver)
	postTransfer(t, app, "", sender, receiver)

	list, err := store.ListTransfers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestIdempotency_ServerErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	store, sender, receiver := seedPair(t)

	// Oracle outage on the first request, healthy afterwards.
	var calls atomic.Int32
	app := transferApp(t, store, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		approve(w, r)
	})

	first, _ := postTransfer(t, app, "key-1", sender, receiver)
	require.Equal(t, http.StatusBadGateway, first.StatusCode)

	second, _ := postTransfer(t, app, "key-1", sender, receiver)
	assert.Equal(t, http.StatusCreated, second.StatusCode, "a retry after a transient outage must run, not replay the outage")
	assert.Empty(t, second.Header.Get("X-Idempotency-Hit"))

	list, err := store.ListTransfers(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
