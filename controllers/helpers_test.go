package controllers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	config "github.com/phillip/pawshome-go/config"
	identity "github.com/phillip/pawshome-go/identity"
	middleware "github.com/phillip/pawshome-go/middleware"
	observability "github.com/phillip/pawshome-go/observability"
)

const testDB = "pawshome_test"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	cfg    *config.Config
	router *gin.Engine
	signer *identity.HMACVerifier
	t      *testing.T
}

// newTestEnv wires cfg to the mock deployment. Routes are registered per
// test with env.handle so each test exercises only what it needs.
func newTestEnv(t *testing.T, mt *mtest.T) *testEnv {
	t.Helper()
	v, err := identity.NewHMACVerifier("controllers-test-secret-0123456789", "")
	require.NoError(t, err)

	cfg := &config.Config{
		DBName:         testDB,
		RequestTimeout: 2 * time.Second,
		MongoClient:    mt.Client,
		Verifier:       v,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:        observability.NewMetrics(),
	}
	return &testEnv{cfg: cfg, router: gin.New(), signer: v, t: t}
}

func (e *testEnv) public(method, path string, h gin.HandlerFunc) {
	e.router.Handle(method, path, h)
}

func (e *testEnv) handle(method, path string, h gin.HandlerFunc) {
	e.router.Handle(method, path, middleware.AuthMiddleware(e.cfg), h)
}

func (e *testEnv) token(id identity.Identity) string {
	e.t.Helper()
	tok, err := e.signer.Mint(id, time.Hour)
	require.NoError(e.t, err)
	return "Bearer " + tok
}

func (e *testEnv) do(method, path, auth, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func ns(collection string) string { return testDB + "." + collection }

func toDoc(t *testing.T, v interface{}) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func updateResponse(matched, modified int32) bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: matched},
		bson.E{Key: "nModified", Value: modified},
	)
}

// facetResponse mimics the single document a $facet page query returns.
func facetResponse(collection string, total int32, docs ...bson.D) bson.D {
	data := bson.A{}
	for _, d := range docs {
		data = append(data, d)
	}
	counts := bson.A{}
	if total > 0 {
		counts = append(counts, bson.D{{Key: "n", Value: total}})
	}
	return mtest.CreateCursorResponse(0, ns(collection), mtest.FirstBatch, bson.D{
		{Key: "data", Value: data},
		{Key: "total", Value: counts},
	})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func scrape(t *testing.T, m *observability.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
