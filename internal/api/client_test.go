package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientAttachesBearerCredential(t *testing.T) {
	var gotAuth, gotRequestID string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer backend.Close()

	client := NewClient(backend.URL)
	client.SetToken("tok-123")

	var out map[string]string
	_, err := client.Do(context.Background(), "GET", "/agents", nil, &out)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "ok", out["status"])
}

func TestClientSendsUnauthenticatedWithoutCredential(t *testing.T) {
	var gotAuth string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer backend.Close()

	client := NewClient(backend.URL)

	var out map[string]string
	_, err := client.Do(context.Background(), "POST", "/auth/login", map[string]string{"email": "x"}, &out)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientParsesErrorEnvelope(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":"VALIDATION_FAILED","message":"missing field","details":"name is required"}`))
	}))
	defer backend.Close()

	client := NewClient(backend.URL)

	_, err := client.Do(context.Background(), "POST", "/billing/payment", map[string]string{}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)
	assert.Equal(t, "missing field", apiErr.Message)
	assert.Equal(t, "name is required", apiErr.Details)
}

func TestClientSurfacesNonJSONErrorBody(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer backend.Close()

	client := NewClient(backend.URL)

	_, err := client.Do(context.Background(), "GET", "/agents", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream exploded", apiErr.Message)
}

func TestClientNotifiesUnauthorizedBeforeReturning(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer backend.Close()

	client := NewClient(backend.URL)
	client.SetToken("tok-revoked")

	notified := 0
	client.OnUnauthorized(func() {
		notified++
		// The handler runs before the caller sees the error.
		client.SetToken("")
	})

	_, err := client.Do(context.Background(), "GET", "/agents", nil, nil)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, notified)
	assert.Empty(t, client.Token())
}

func TestClientUnauthorizedSignalPerResponse(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer backend.Close()

	client := NewClient(backend.URL)

	var mu sync.Mutex
	notified := 0
	client.OnUnauthorized(func() {
		mu.Lock()
		notified++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Do(context.Background(), "GET", "/agents", nil, nil) //nolint:errcheck
		}()
	}
	wg.Wait()

	// One signal per distinct 401, no queueing beyond that.
	assert.Equal(t, 4, notified)
}

func TestClientOtherStatusesDoNotForceLogout(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom"}`))
	}))
	defer backend.Close()

	client := NewClient(backend.URL)
	notified := 0
	client.OnUnauthorized(func() { notified++ })

	_, err := client.Do(context.Background(), "GET", "/agents", nil, nil)
	require.Error(t, err)
	assert.False(t, IsUnauthorized(err))
	assert.Zero(t, notified)
}

func TestClientWrapsTransportFailure(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", WithTimeout(500*time.Millisecond))

	_, err := client.Do(context.Background(), "GET", "/agents", nil, nil)
	require.Error(t, err)

	// Transport failures are wrapped network errors, not API errors.
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "perform request")
}

func TestNewClientNormalizesBasePath(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{name: "bare host", base: "https://api.example.com", want: "/api/v1"},
		{name: "trailing slash", base: "https://api.example.com/", want: "/api/v1"},
		{name: "v1 only", base: "https://api.example.com/v1", want: "/api/v1"},
		{name: "api only", base: "https://api.example.com/api", want: "/api/v1"},
		{name: "full path kept", base: "https://api.example.com/api/v1", want: "/api/v1"},
		{name: "custom path kept", base: "https://api.example.com/custom", want: "/custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.base)
			assert.Equal(t, tt.want, client.baseURL.Path)
		})
	}
}

func TestLoginReturnsCredentialWithoutStoringIt(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/auth/login", r.URL.Path)
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(LoginResponse{
			User:  User{ID: "u-1", Email: req.Email},
			Token: "tok-issued",
		})
	}))
	defer backend.Close()

	client := NewClient(backend.URL)

	resp, err := client.Login(context.Background(), LoginRequest{Email: "op@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok-issued", resp.Token)

	// The session layer owns credential storage.
	assert.Empty(t, client.Token())
}
