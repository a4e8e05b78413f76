//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/algostatus/statuspage/internal/domain"
	"github.com/algostatus/statuspage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listUsers(t *testing.T, client *testutil.Client) []domain.User {
	t.Helper()

	resp, err := client.GET("/api/users")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var users []domain.User
	testutil.DecodeJSON(t, resp, &users)
	return users
}

func TestUsers_Login(t *testing.T) {
	admin := newAdminClient(t)
	user, password := createTestUser(t, admin, "Checkout")

	tests := []struct {
		name        string
		email       string
		password    string
		wantStatus  int
		wantMessage string
	}{
		{name: "valid credentials", email: user.Email, password: password, wantStatus: http.StatusOK, wantMessage: "Login successful"},
		{name: "wrong password", email: user.Email, password: "nope", wantStatus: http.StatusUnauthorized, wantMessage: "Invalid credentials"},
		{name: "unknown email", email: "ghost@example.com", password: password, wantStatus: http.StatusNotFound, wantMessage: "User not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t)

			resp, err := client.POST("/api/users/login", map[string]string{
				"email":    tt.email,
				"password": tt.password,
			})
			require.NoError(t, err)
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantMessage, messageOf(t, resp))
		})
	}
}

func TestUsers_CreateGetDelete(t *testing.T) {
	admin := newAdminClient(t)
	user, _ := createTestUser(t, admin, "admin")

	assert.True(t, user.IsAdmin, "associatedServices matches Admin case-insensitively")

	resp, err := admin.GET("/api/users/" + user.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutil.ReadBody(t, resp)
	assert.NotContains(t, body, "password")

	resp, err = admin.DELETE("/api/users/" + user.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "User deleted successfully", messageOf(t, resp))

	resp, err = admin.GET("/api/users/" + user.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUsers_DuplicateEmail(t *testing.T) {
	admin := newAdminClient(t)

	resp, err := admin.POST("/api/users/new", map[string]string{
		"email":              adminEmail,
		"password":           "whatever",
		"associatedServices": "Admin",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email already exists", messageOf(t, resp))
}

func TestUsers_DeletedUserTokenIsRejected(t *testing.T) {
	admin := newAdminClient(t)
	user, password := createTestUser(t, admin, "Admin")

	member := newTestClient(t)
	member.LoginAs(t, user.Email, password)

	resp, err := admin.DELETE("/api/users/" + user.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = member.GET("/api/users")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUsers_PasswordIsStoredHashed(t *testing.T) {
	admin := newAdminClient(t)
	user, password := createTestUser(t, admin, "Checkout")

	var stored string
	err := testDB.QueryRow(t.Context(), "SELECT password_hash FROM users WHERE id = $1", user.ID).Scan(&stored)
	require.NoError(t, err)

	assert.NotEqual(t, password, stored)
	assert.NotEmpty(t, stored)
}
