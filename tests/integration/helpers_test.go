//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/testutil"
	"github.com/stretchr/testify/require"
)

// createTestService creates a service with a unique name and deletes it on cleanup.
func createTestService(t *testing.T, client *testutil.Client, prefix string) domain.Service {
	t.Helper()

	resp, err := client.POST("/api/services/services", map[string]interface{}{
		"name":        testutil.RandomName(prefix),
		"description": "integration test service",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var svc domain.Service
	testutil.DecodeJSON(t, resp, &svc)

	t.Cleanup(func() {
		resp, err := client.DELETE("/api/services/deleteService/" + svc.ID)
		if err == nil {
			_ = resp.Body.Close()
		}
	})
	return svc
}

// createTestIncident creates an incident against serviceName.
func createTestIncident(t *testing.T, client *testutil.Client, serviceName string, impact domain.Impact) domain.Incident {
	t.Helper()

	resp, err := client.POST("/api/incidents", map[string]interface{}{
		"serviceName":     serviceName,
		"type":            "Incident",
		"description":     "Elevated error rates on checkout",
		"impactOnService": impact,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var incident domain.Incident
	testutil.DecodeJSON(t, resp, &incident)
	return incident
}

// getService fetches a service by id through the public API.
func getService(t *testing.T, client *testutil.Client, id string) domain.Service {
	t.Helper()

	resp, err := client.GET("/api/services/getServices/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var svc domain.Service
	testutil.DecodeJSON(t, resp, &svc)
	return svc
}

// createTestUser adds a team member and deletes them on cleanup.
func createTestUser(t *testing.T, client *testutil.Client, associatedServices string) (domain.User, string) {
	t.Helper()

	email := testutil.RandomName("member") + "@example.com"
	password := "member-password"

	resp, err := client.POST("/api/users/new", map[string]string{
		"email":              email,
		"password":           password,
		"associatedServices": associatedServices,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user domain.User
	testutil.DecodeJSON(t, resp, &user)

	t.Cleanup(func() {
		resp, err := client.DELETE("/api/users/" + user.ID)
		if err == nil {
			_ = resp.Body.Close()
		}
	})
	return user, password
}

// messageOf decodes a {"message": ...} body.
func messageOf(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body struct {
		Message string `json:"message"`
	}
	testutil.DecodeJSON(t, resp, &body)
	return body.Message
}
