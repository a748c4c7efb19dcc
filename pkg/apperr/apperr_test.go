package apperr

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", NewFieldError("title", "Missing title"), http.StatusBadRequest, "Missing title"},
		{"wrapped not found", fmt.Errorf("load: %w", NewNotFoundError("Article not found")), http.StatusNotFound, "Article not found"},
		{"conflict", NewConflictError("slug taken"), http.StatusConflict, "slug taken"},
		{"upstream", NewUpstreamAssetError("https://x/y.jpg", 503, nil), http.StatusBadGateway, "Failed to fetch upstream asset"},
		{"store hides cause", Store("find article", sql.ErrConnDone), http.StatusInternalServerError, "internal server error"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := StatusCode(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestStoreKeepsTaxonomy(t *testing.T) {
	assert.Nil(t, Store("op", nil))

	nf := NewNotFoundError("gone")
	assert.Same(t, nf, Store("op", nf))

	wrapped := Store("insert", sql.ErrTxDone)
	assert.True(t, IsStoreError(wrapped))
	assert.ErrorIs(t, wrapped, sql.ErrTxDone)
	assert.Same(t, wrapped, Store("again", wrapped))
}

func TestFieldOf(t *testing.T) {
	assert.Equal(t, "summary", FieldOf(NewFieldError("summary", "Missing summary")))
	assert.Equal(t, "", FieldOf(NewValidationError("collision")))
	assert.Equal(t, "", FieldOf(fmt.Errorf("plain")))
}

func TestUpstreamAssetErrorMessage(t *testing.T) {
	err := NewUpstreamAssetError("https://cdn/a.png", 0, fmt.Errorf("timeout"))
	assert.Contains(t, err.Error(), "timeout")
	assert.True(t, IsUpstreamAssetError(fmt.Errorf("wrap: %w", err)))
}
