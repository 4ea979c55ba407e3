package nexus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neromous/Beaver/internal/config"
	"github.com/neromous/Beaver/internal/core"
	"github.com/neromous/Beaver/internal/edn"
)

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.Default = config.ProviderRef{Provider: "test", Model: "m1"}
	cfg.Providers = map[string]map[string]config.Provider{
		"test": {
			"m1": {API: config.APIConfig{
				URL: url, Model: "test-model", SecretKey: "sk-test-key-xyz",
			}},
		},
	}
	cfg.Settings.Timeout = "5s"
	cfg.Settings.RetryAttempts = 1
	return cfg
}

func newServer(t *testing.T, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{
			"model": "test-model",
			"choices": [{"message": {"content": "` + reply + `"}}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newHarness(t *testing.T, cfg *config.Config) *core.Resolver {
	t.Helper()
	svc := New(cfg, nil)
	t.Cleanup(func() { svc.Close() })
	reg := core.NewRegistry()
	svc.Register(reg)
	return core.NewResolver(reg)
}

func eval(t *testing.T, res *core.Resolver, source string) (core.Value, error) {
	t.Helper()
	parsed, err := edn.Parse(source)
	if err != nil {
		t.Fatalf("parse %q: %v", source, err)
	}
	return res.Resolve(context.Background(), parsed)
}

func TestSync(t *testing.T) {
	srv, calls := newServer(t, "the reply")
	res := newHarness(t, testConfig(srv.URL))

	got, err := eval(t, res,
		`[:nexus/sync {:provider "test" :model "m1"} [":user" "hello"]]`)
	require.NoError(t, err)

	ok, _ := got.MapGet("success")
	assert.True(t, ok.Bool())
	reply, _ := got.MapGet("response")
	assert.Equal(t, "the reply", reply.Str())

	meta, _ := got.MapGet("metadata")
	usage, _ := meta.MapGet("usage")
	total, _ := usage.MapGet("total_tokens")
	assert.Equal(t, int64(8), total.Int())
	msgCount, _ := meta.MapGet("message_count")
	assert.Equal(t, int64(1), msgCount.Int())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSyncSendsFullMessageList(t *testing.T) {
	srv, _ := newServer(t, "ok")
	res := newHarness(t, testConfig(srv.URL))

	got, err := eval(t, res, `[:nexus/sync {:provider "test" :model "m1"}
		[[":system" "be brief"] [":user" "one"] [":assistant" "two"] [":user" "three"]]]`)
	require.NoError(t, err)

	meta, _ := got.MapGet("metadata")
	count, _ := meta.MapGet("message_count")
	assert.Equal(t, int64(4), count.Int())
	users, _ := meta.MapGet("user_message_count")
	assert.Equal(t, int64(2), users.Int())
	systems, _ := meta.MapGet("system_message_count")
	assert.Equal(t, int64(1), systems.Int())
}

func TestSyncRequiresUserMessage(t *testing.T) {
	srv, calls := newServer(t, "never")
	res := newHarness(t, testConfig(srv.URL))

	_, err := eval(t, res,
		`[:nexus/sync {:provider "test" :model "m1"} [[":system" "only system"]]]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user message")
	assert.Zero(t, calls.Load(), "validation failures stay off the wire")
}

func TestSyncRejectsBadConfig(t *testing.T) {
	srv, _ := newServer(t, "x")
	res := newHarness(t, testConfig(srv.URL))

	_, err := eval(t, res, `[:nexus/sync {:provider "ghost" :model "m"} [":user" "hi"]]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")

	_, err = eval(t, res, `[:nexus/sync "not-a-map" [":user" "hi"]]`)
	require.Error(t, err)
}

func TestSyncBatchFailSoft(t *testing.T) {
	srv, _ := newServer(t, "batch-ok")
	res := newHarness(t, testConfig(srv.URL))

	got, err := eval(t, res, `[:nexus/sync-batch [
		{"config" {:provider "test" :model "m1"} "messages" [[":user" "hi"]]}
		{"config" {:provider "ghost" :model "m"} "messages" [[":user" "hi"]]}
		{"config" {:provider "test" :model "m1"} "messages" [[":user" "again"]]}]]`)
	require.NoError(t, err, "batch materializes item errors instead of failing")

	items := got.Items()
	require.Len(t, items, 3)
	ok0, _ := items[0].MapGet("success")
	assert.True(t, ok0.Bool())
	ok1, _ := items[1].MapGet("success")
	assert.False(t, ok1.Bool())
	errText, _ := items[1].MapGet("error")
	assert.Contains(t, errText.Str(), "not configured")
	ok2, _ := items[2].MapGet("success")
	assert.True(t, ok2.Bool(), "items after a failure still run")
}

func TestQuickChatUsesDefaultProvider(t *testing.T) {
	srv, _ := newServer(t, "quick")
	res := newHarness(t, testConfig(srv.URL))

	got, err := eval(t, res, `[:nexus/quick-chat "what" "gives"]`)
	require.NoError(t, err)
	assert.Equal(t, "quick", got.Str())
}

func TestQuickChatWithoutDefault(t *testing.T) {
	srv, _ := newServer(t, "x")
	cfg := testConfig(srv.URL)
	cfg.Default = config.ProviderRef{}
	res := newHarness(t, cfg)

	_, err := eval(t, res, `[:nexus/quick-chat "hi"]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default provider")
}

func TestValidateOp(t *testing.T) {
	srv, _ := newServer(t, "pong")
	res := newHarness(t, testConfig(srv.URL))

	got, err := eval(t, res, `[:nexus/validate "test" "m1"]`)
	require.NoError(t, err)
	valid, _ := got.MapGet("valid")
	assert.True(t, valid.Bool(), "got %s", got)

	got, err = eval(t, res, `[:nexus/validate "ghost" "m"]`)
	require.NoError(t, err, "validate reports failures as data")
	valid, _ = got.MapGet("valid")
	assert.False(t, valid.Bool())
	errText, _ := got.MapGet("error")
	assert.NotEmpty(t, errText.Str())
}

func TestClientCachePerPair(t *testing.T) {
	srv, _ := newServer(t, "x")
	svc := New(testConfig(srv.URL), nil)
	defer svc.Close()

	ctx := context.Background()
	a, _, err := svc.client(ctx, "test", "m1")
	require.NoError(t, err)
	b, _, err := svc.client(ctx, "test", "m1")
	require.NoError(t, err)
	assert.Same(t, a, b, "same pair reuses the client")
}
