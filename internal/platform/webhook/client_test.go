package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterParsesPaylink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req RegistrationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(1), req.EventID)
		assert.Equal(t, int64(10), req.UserID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"paylink": "https://pay.example/abc"})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	reply, err := client.Register(context.Background(), RegistrationRequest{EventID: 1, UserID: 10, TelegramID: 100500})

	require.NoError(t, err)
	assert.False(t, reply.BareAck)
	assert.Equal(t, "https://pay.example/abc", reply.Paylink)
}

func TestRegisterBareAcknowledgement(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "plain text", body: "Accepted"},
		{name: "empty body", body: ""},
		{name: "whitespace", body: "\n  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			reply, err := client.Register(context.Background(), RegistrationRequest{EventID: 1, UserID: 10})

			require.NoError(t, err)
			assert.True(t, reply.BareAck)
			assert.Empty(t, reply.Paylink)
		})
	}
}

func TestRegisterJSONWithoutPaylink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"registered"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	reply, err := client.Register(context.Background(), RegistrationRequest{EventID: 1, UserID: 10})

	require.NoError(t, err)
	assert.False(t, reply.BareAck)
	assert.Empty(t, reply.Paylink)
}

func TestRegisterNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.Register(context.Background(), RegistrationRequest{EventID: 1, UserID: 10})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRegisterContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL, time.Second)
	_, err := client.Register(ctx, RegistrationRequest{EventID: 1, UserID: 10})

	require.Error(t, err)
}
