// ABOUTME: Tests for the remote mirror client
// ABOUTME: Covers upsert and delete pushes, auth headers and failure reporting

package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g333vn/Glingo-sub002/internal/store"
)

func TestPush_Upsert(t *testing.T) {
	var gotMethod, gotPath, gotAuth, gotUser, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUser = r.Header.Get("X-Glingo-User")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Push(context.Background(), store.MirrorWrite{
		Store:  "books",
		Key:    "n5_b1",
		Data:   []byte(`{"id":"b1"}`),
		Token:  "tok",
		UserID: "u1",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/v1/stores/books/records/n5_b1", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "u1", gotUser)
	assert.JSONEq(t, `{"id":"b1"}`, gotBody)
}

func TestPush_Delete(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Push(context.Background(), store.MirrorWrite{
		Store:  "books",
		Key:    "n5_b1",
		Delete: true,
		Token:  "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/v1/stores/books/records/n5_b1", gotPath)
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.Push(context.Background(), store.MirrorWrite{Store: "books", Key: "k", Data: []byte(`{}`)})
	assert.Error(t, err)
}

func TestPush_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	err := c.Push(context.Background(), store.MirrorWrite{Store: "books", Key: "k", Data: []byte(`{}`)})
	assert.Error(t, err)
}
