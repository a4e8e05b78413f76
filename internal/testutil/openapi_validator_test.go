package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/algostatus/statuspage/api/openapi"
	"github.com/stretchr/testify/require"
)

func TestLoadOpenAPIValidator_EmbeddedContract(t *testing.T) {
	v, err := LoadOpenAPIValidator(openapi.Spec)

	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestLoadOpenAPIValidator_RejectsGarbage(t *testing.T) {
	_, err := LoadOpenAPIValidator([]byte("not: [valid"))

	require.Error(t, err)
}

func TestOpenAPIValidator_AcceptsConformingResponse(t *testing.T) {
	// Arrange
	v := NewOpenAPIValidator(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"1","name":"API","description":"Public API","status":"Operational",` +
			`"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}]`))
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/services/getServices", nil)
	require.NoError(t, err)

	// Act
	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	// Assert
	v.ValidateResponse(t, req, resp)
}
