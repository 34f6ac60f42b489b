package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecompanion/pipeline/internal/common"
)

func TestUploadFile_Success(t *testing.T) {
	var gotAuth string
	var gotReq UploadRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/upload", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(UploadResponse{FileID: "srv-1", Status: "pending"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", "token-1")
	resp, err := c.UploadFile(context.Background(), UploadRequest{
		Name: "a.png", Type: "image/png", Base64: "cG5n", ProcessType: "magic-diagram",
	})
	require.NoError(t, err)

	assert.Equal(t, "srv-1", resp.FileID)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "Bearer token-1", gotAuth)
	assert.Equal(t, "magic-diagram", gotReq.ProcessType)
}

func TestUploadFile_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "bad-token")
	_, err := c.UploadFile(context.Background(), UploadRequest{Name: "a", Type: "t", Base64: "x"})
	assert.True(t, errors.Is(err, common.ErrorUnauthorized), "want common.ErrorUnauthorized, got %v", err)
}

func TestUploadFile_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token")
	_, err := c.UploadFile(context.Background(), UploadRequest{Name: "a", Type: "t", Base64: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestGetFileStatus_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/files/f-1/status", r.URL.Path)
		_ = json.NewEncoder(w).Encode(FileStatus{Status: "completed", TextContent: "hi", TokensUsed: 3})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token")
	status, err := c.GetFileStatus(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.True(t, status.Terminal())
	assert.Equal(t, "hi", status.TextContent)
}

func TestGetFileStatus_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token")
	_, err := c.GetFileStatus(context.Background(), "ghost")
	assert.True(t, errors.Is(err, common.ErrorNotFound), "want common.ErrorNotFound, got %v", err)
}

func TestFileStatus_Terminal(t *testing.T) {
	assert.False(t, (&FileStatus{Status: "pending"}).Terminal())
	assert.False(t, (&FileStatus{Status: "processing"}).Terminal())
	assert.True(t, (&FileStatus{Status: "completed"}).Terminal())
	assert.True(t, (&FileStatus{Status: "error"}).Terminal())
}
