package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"explicit wins", Config{Endpoint: "https://api.example.com/gql", Hostname: "localhost"}, "https://api.example.com/gql"},
		{"localhost", Config{Hostname: "localhost"}, "http://localhost:1313/graphql"},
		{"localhost with port", Config{Hostname: "localhost:5173"}, "http://localhost:1313/graphql"},
		{"loopback", Config{Hostname: "127.0.0.1"}, "http://localhost:1313/graphql"},
		{"empty", Config{}, "http://localhost:1313/graphql"},
		{"deployed", Config{Hostname: "portal.maternar.com"}, "https://portal.maternar.com/graphql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveEndpoint(tt.cfg))
		})
	}
}

func TestMockBackendKnownUser(t *testing.T) {
	m := NewMockBackend()
	sess, err := m.Login(context.Background(), "Admin@Maternar.com", "anything")
	require.NoError(t, err)
	assert.Equal(t, "admin", sess.User.Role)
	assert.Equal(t, "Ana Admin", sess.User.FullName)
	assert.NotEmpty(t, sess.Token)

	me, err := m.Me(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, me.ID)

	require.NoError(t, m.Logout(context.Background(), sess.Token))
	_, err = m.Me(context.Background(), sess.Token)
	assert.Error(t, err)
}

func TestMockBackendSynthesizesUser(t *testing.T) {
	m := NewMockBackend()
	sess, err := m.Login(context.Background(), "joana.lima@example.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "Joana", sess.User.FirstName)
	assert.Equal(t, "Lima", sess.User.LastName)
	assert.Equal(t, "joana.lima", sess.User.Username)
	assert.Equal(t, "user", sess.User.Role)
	assert.Equal(t, 1, sess.User.Level)
	assert.True(t, sess.User.valid())

	_, err = m.Login(context.Background(), "  ", "x")
	assert.Error(t, err)
}

func TestMockBackendRegister(t *testing.T) {
	m := NewMockBackend()
	sess, err := m.Register(context.Background(), RegisterInput{Email: "novo@maternar.com", FirstName: "Novo", LastName: "Colaborador", Department: "RH"})
	require.NoError(t, err)
	assert.Equal(t, "Novo Colaborador", sess.User.FullName)
	assert.Equal(t, "RH", sess.User.Department)

	_, err = m.Register(context.Background(), RegisterInput{Email: "x@y.com"})
	assert.Error(t, err)
}

func TestLiveBackendLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "1.2.3", r.Header.Get("X-App-Version"))
		assert.Equal(t, "staging", r.Header.Get("X-App-Environment"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req gqlRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Login", req.OperationName)
		assert.Equal(t, "carla@maternar.com", req.Variables["email"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"login":{"token":"jwt","user":{"id":"7","email":"carla@maternar.com","level":2}}}}`))
	}))
	defer srv.Close()

	b := NewLiveBackend(srv.URL, "1.2.3", "staging")
	sess, err := b.Login(context.Background(), "carla@maternar.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", sess.Token)
	assert.Equal(t, "7", sess.User.ID)
	assert.Equal(t, 2, sess.User.Level)
}

func TestLiveBackendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":null,"errors":[{"message":"authentication required","extensions":{"code":"UNAUTHENTICATED"}}]}`))
	}))
	defer srv.Close()

	b := NewLiveBackend(srv.URL, "1.0.0", "test")
	_, err := b.Me(context.Background(), "jwt")
	require.Error(t, err)
	assert.Equal(t, "authentication required", err.Error())

	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, "UNAUTHENTICATED", gqlErr.Code())
}

func TestLiveBackendBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	err := NewLiveBackend(srv.URL, "", "").Logout(context.Background(), "jwt")
	assert.Error(t, err)
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileStorage(path)

	_, ok, err := s.Get(KeyAuthToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(KeyAuthToken, "tok"))
	require.NoError(t, s.Set(KeyUserData, `{"id":"1"}`))

	reopened := NewFileStorage(path)
	v, ok, err := reopened.Get(KeyAuthToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	require.NoError(t, reopened.Remove(KeyAuthToken, KeyUserData))
	_, ok, err = s.Get(KeyUserData)
	require.NoError(t, err)
	assert.False(t, ok)
}
