package external

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func sampleAssessment() *domain.Assessment {
	return &domain.Assessment{
		ID:               "a-1",
		Patient:          domain.DefaultPatientProfile(),
		Tumor:            domain.DefaultTumorProfile(),
		MolecularSubtype: domain.MolecularNSMP,
		Stage:            domain.StageIIIC1,
		RiskGroup:        domain.RiskHigh,
		Plan: domain.TreatmentPlan{
			Surgery:  []string{"surgery step"},
			Adjuvant: []string{"adjuvant step"},
		},
	}
}

func TestScanClient_Scan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scan", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))

		var req scanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw, err := base64.StdEncoding.DecodeString(req.Image)
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(raw))
		assert.Equal(t, "image/jpeg", req.MimeType)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"histology":"Serous carcinoma","p53Abnormal":true}`))
	}))
	defer server.Close()

	client := NewScanClient(domain.ServiceEndpointConfig{BaseURL: server.URL, APIKey: "secret", RateLimit: 100}, testLogger())
	result, err := client.Scan(context.Background(), []byte("png-bytes"), "image/jpeg")
	require.NoError(t, err)

	require.NotNil(t, result.Histology)
	assert.Equal(t, "Serous carcinoma", *result.Histology)
	require.NotNil(t, result.P53Abnormal)
	assert.True(t, *result.P53Abnormal)
	assert.Nil(t, result.Myoinvasion)
	assert.Nil(t, result.POLEMutation)
}

func TestScanClient_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	t.Run("disabled", func(t *testing.T) {
		client := NewScanClient(domain.ServiceEndpointConfig{}, testLogger())
		assert.False(t, client.Enabled())
		_, err := client.Scan(context.Background(), []byte("x"), "")
		assert.ErrorIs(t, err, ErrServiceDisabled)
	})

	t.Run("empty image", func(t *testing.T) {
		client := NewScanClient(domain.ServiceEndpointConfig{BaseURL: server.URL}, testLogger())
		_, err := client.Scan(context.Background(), nil, "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("upstream failure", func(t *testing.T) {
		client := NewScanClient(domain.ServiceEndpointConfig{BaseURL: server.URL, RateLimit: 100}, testLogger())
		_, err := client.Scan(context.Background(), []byte("x"), "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
	})
}

func TestExplainClient_Explain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req explainRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "IIIC1", req.Stage)
		assert.Equal(t, "High Risk", req.Risk)
		assert.Equal(t, []string{"surgery step", "adjuvant step"}, req.Treatment)
		assert.Contains(t, req.Context, "Patient Age: 60")

		_, _ = w.Write([]byte(`{"text":"  The cancer has reached nearby lymph nodes.  "}`))
	}))
	defer server.Close()

	client := NewExplainClient(domain.ServiceEndpointConfig{BaseURL: server.URL, RateLimit: 100}, testLogger())
	text, err := client.Explain(context.Background(), sampleAssessment())
	require.NoError(t, err)
	assert.Equal(t, "The cancer has reached nearby lymph nodes.", text)
}

func TestExplainClient_Fallbacks(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":""}`))
	}))
	defer empty.Close()

	ctx := context.Background()
	history := []domain.ChatMessage{{Role: "user", Text: "What does IIIC1 mean?"}}

	t.Run("explain failure", func(t *testing.T) {
		client := NewExplainClient(domain.ServiceEndpointConfig{BaseURL: failing.URL, RateLimit: 100}, testLogger())
		text, err := client.Explain(ctx, sampleAssessment())
		assert.Error(t, err)
		assert.Equal(t, ExplainUnavailable, text)
	})

	t.Run("chat failure", func(t *testing.T) {
		client := NewExplainClient(domain.ServiceEndpointConfig{BaseURL: failing.URL, RateLimit: 100}, testLogger())
		text, err := client.Chat(ctx, history, sampleAssessment())
		assert.Error(t, err)
		assert.Equal(t, ChatUnavailable, text)
	})

	t.Run("empty replies", func(t *testing.T) {
		client := NewExplainClient(domain.ServiceEndpointConfig{BaseURL: empty.URL, RateLimit: 100}, testLogger())
		text, err := client.Explain(ctx, sampleAssessment())
		require.NoError(t, err)
		assert.Equal(t, ExplainEmpty, text)

		text, err = client.Chat(ctx, history, sampleAssessment())
		require.NoError(t, err)
		assert.Equal(t, ChatEmpty, text)
	})

	t.Run("disabled", func(t *testing.T) {
		client := NewExplainClient(domain.ServiceEndpointConfig{}, testLogger())
		text, err := client.Explain(ctx, sampleAssessment())
		assert.ErrorIs(t, err, ErrServiceDisabled)
		assert.Equal(t, ExplainUnavailable, text)
	})
}

func TestExplainClient_CircuitOpens(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewExplainClient(domain.ServiceEndpointConfig{BaseURL: server.URL, RateLimit: 1000}, testLogger())
	for i := 0; i < 6; i++ {
		text, _ := client.Explain(context.Background(), sampleAssessment())
		assert.Equal(t, ExplainUnavailable, text)
	}
	assert.Equal(t, 3, calls, "breaker should stop forwarding after it trips")
}

func TestRedisCache_Unreachable(t *testing.T) {
	_, err := NewRedisCache(domain.CacheConfig{RedisURL: "not-a-url"})
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	cache := NewRedisCacheFromClient(client, time.Minute)
	defer cache.Close()

	ctx := context.Background()
	_, ok := cache.Get(ctx, "fingerprint")
	assert.False(t, ok)
	assert.Error(t, cache.Set(ctx, "fingerprint", sampleAssessment()))
	assert.Error(t, cache.Set(ctx, "fingerprint", nil))
	assert.Error(t, cache.Ping(ctx))
}
