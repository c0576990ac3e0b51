// ABOUTME: Tests for the streaming HTTP API.
// ABOUTME: Live-server streaming, command pre-checks, token exchange, dedupe.

package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hireloop/hireloop-gateway/internal/auth"
	"github.com/hireloop/hireloop-gateway/internal/builtins"
	"github.com/hireloop/hireloop-gateway/internal/dedupe"
	"github.com/hireloop/hireloop-gateway/internal/format"
	"github.com/hireloop/hireloop-gateway/internal/planner"
	"github.com/hireloop/hireloop-gateway/internal/runtime"
	"github.com/hireloop/hireloop-gateway/internal/store"
	"github.com/hireloop/hireloop-gateway/internal/stream"
	"github.com/hireloop/hireloop-gateway/internal/tool"
)

type apiFixture struct {
	server *httptest.Server
	store  *store.SQLiteStore
	token  string
	secret string
	tenant *store.Tenant
}

func newAPIFixture(t *testing.T, results ...*runtime.Result) *apiFixture {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hash, err := auth.HashSecret("tenant-secret")
	require.NoError(t, err)
	tenant := &store.Tenant{Name: "acme-hr", SecretHash: hash}
	require.NoError(t, st.CreateTenant(context.Background(), tenant))

	verifier := auth.NewJWTVerifier([]byte("test-secret"))
	token, err := verifier.Generate(tenant.ID, time.Hour)
	require.NoError(t, err)

	registry := tool.NewRegistry()
	require.NoError(t, registry.RegisterAll(builtins.HRPack(builtins.NewMemoryDirectory())))

	rt := runtime.NewFakeRuntime(results...)
	eng := planner.New(rt, st, st, registry,
		planner.Config{MaxSteps: 5, MaxRetries: 3, ContextWindow: 10}, nil)
	handler := NewHandler(auth.NewResolver(verifier, st), eng, st, st,
		format.Passthrough{}, format.Cards{}, time.Millisecond, nil)

	cache := dedupe.New(time.Minute, 100)
	t.Cleanup(cache.Close)

	api := NewAPI(handler, st, st, verifier, cache, 16, nil)
	mux := http.NewServeMux()
	api.Register(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, store: st, token: token, secret: "tenant-secret", tenant: tenant}
}

// postStream posts JSON and decodes the streamed chunk lines.
func (fx *apiFixture) postStream(t *testing.T, path string, body map[string]any) (int, []stream.Chunk) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, fx.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+fx.token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	var chunks []stream.Chunk
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == "" {
			continue
		}
		chunks = append(chunks, stream.DecodeLine(scanner.Text()))
	}
	require.NoError(t, scanner.Err())
	return resp.StatusCode, chunks
}

func TestAPI_MessageStream(t *testing.T) {
	fx := newAPIFixture(t, runtime.TextResult("There are 3 open jobs."))

	status, chunks := fx.postStream(t, "/v1/messages", map[string]any{
		"conversation_id": "conv-1",
		"content":         "list open jobs",
		"user_id":         "user-1",
	})
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, chunks)

	assert.Equal(t, stream.KindStatus, chunks[0].Kind)
	assert.Equal(t, "AI is Reading Your Message...", chunks[0].Text)

	terminal := chunks[len(chunks)-1]
	require.Equal(t, stream.KindFinalData, terminal.Kind)
	var p format.Payload
	require.NoError(t, json.Unmarshal(terminal.Payload, &p))
	assert.Equal(t, "There are 3 open jobs.", p.Text)

	// Exactly one terminal chunk.
	for _, c := range chunks[:len(chunks)-1] {
		assert.False(t, c.Terminal())
	}
}

func TestAPI_MessageRequiresConversation(t *testing.T) {
	fx := newAPIFixture(t)

	status, _ := fx.postStream(t, "/v1/messages", map[string]any{
		"content": "hello",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAPI_DuplicateMessageIgnored(t *testing.T) {
	fx := newAPIFixture(t,
		runtime.TextResult("first answer"),
		runtime.TextResult("should not be consumed"),
	)

	body := map[string]any{
		"conversation_id": "conv-1",
		"content":         "list open jobs",
		"idempotency_key": "evt-123",
	}

	status, chunks := fx.postStream(t, "/v1/messages", body)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, chunks)

	status, chunks = fx.postStream(t, "/v1/messages", body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, chunks, 1)
	assert.Equal(t, stream.KindFinalText, chunks[0].Kind)
	assert.Equal(t, "Duplicate message ignored.", chunks[0].Text)
}

func TestAPI_UnknownCommandIs404(t *testing.T) {
	fx := newAPIFixture(t)

	status, _ := fx.postStream(t, "/v1/commands", map[string]any{
		"conversation_id": "conv-1",
		"command_id":      "cmd_missing",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_ApprovalFlowOverHTTP(t *testing.T) {
	fx := newAPIFixture(t,
		runtime.ApprovalResult("schedule_interview", "call_abc", `{}`),
		runtime.TextResult("Interview scheduled."),
	)

	status, chunks := fx.postStream(t, "/v1/messages", map[string]any{
		"conversation_id": "conv-1",
		"content":         "schedule an interview with Dana",
	})
	require.Equal(t, http.StatusOK, status)

	terminal := chunks[len(chunks)-1]
	var card format.Payload
	require.NoError(t, json.Unmarshal(terminal.Payload, &card))
	require.Equal(t, format.PayloadApprovalCard, card.Type)
	require.NotNil(t, card.Card)

	status, chunks = fx.postStream(t, "/v1/commands", map[string]any{
		"conversation_id": "conv-1",
		"command_id":      card.Card.ApproveToken,
	})
	require.Equal(t, http.StatusOK, status)

	var final format.Payload
	require.NoError(t, json.Unmarshal(chunks[len(chunks)-1].Payload, &final))
	assert.Equal(t, "Interview scheduled.", final.Text)
}

func TestAPI_TokenExchange(t *testing.T) {
	fx := newAPIFixture(t)

	body, err := json.Marshal(map[string]string{
		"tenant_id": fx.tenant.ID,
		"secret":    fx.secret,
	})
	require.NoError(t, err)

	resp, err := http.Post(fx.server.URL+"/v1/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out["token"])
}

func TestAPI_TokenExchangeWrongSecret(t *testing.T) {
	fx := newAPIFixture(t)

	body, err := json.Marshal(map[string]string{
		"tenant_id": fx.tenant.ID,
		"secret":    "wrong",
	})
	require.NoError(t, err)

	resp, err := http.Post(fx.server.URL+"/v1/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_Health(t *testing.T) {
	fx := newAPIFixture(t)

	resp, err := http.Get(fx.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
