package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"listing-admin-api/pkg/apierror"
)

func TestNewMeta(t *testing.T) {
	assert.Equal(t, 3, NewMeta(1, 20, 45).Pages)
	assert.Equal(t, 1, NewMeta(1, 20, 20).Pages)
	assert.Equal(t, 0, NewMeta(1, 20, 0).Pages)
	assert.Equal(t, 0, NewMeta(1, 0, 10).Pages)
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []string{"a"}, 2, 20, 45)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":true,"data":["a"],"meta":{"page":2,"limit":20,"total":45,"pages":3}}`, rec.Body.String())
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, apierror.NotFound("Listing not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"NOT_FOUND"`)

	rec = httptest.NewRecorder()
	Error(rec, errors.New("sql: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
