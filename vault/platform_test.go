package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakePlatform(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("POST /identity/api/oauth2/token/xpmplatform", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("grant_type") != "client_credentials" ||
			r.Form.Get("scope") != "xpmheadless" ||
			r.Form.Get("client_id") != "svc-platform" || r.Form.Get("client_secret") != "pl4tform" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"pf-token","token_type":"bearer","expires_in":3600}`)
	})

	mux.HandleFunc("GET /identity/UserMgmt/GetUser", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"userId":%q,"auth":%q,"tenant":%q}`,
			r.URL.Query().Get("userId"),
			r.Header.Get("Authorization"),
			r.Header.Get("X-MT-SecondaryId"))
	})

	mux.HandleFunc("POST /identity/api/Report/RunReport", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		args, _ := body["Args"].(map[string]any)
		params, _ := args["Parameters"].([]any)
		first, _ := params[0].(map[string]any)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"report":       body["ID"],
			"searchString": first["Value"],
		})
	})

	mux.HandleFunc("POST /identity/UserMgmt/RemoveUsers", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"removed": body["Users"]})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestPlatform(t *testing.T) *Platform {
	t.Helper()
	srv := newFakePlatform(t)
	p, err := NewPlatform(context.Background(), PlatformConfig{
		Hostname:        srv.URL,
		ServiceAccount:  "svc-platform",
		ServicePassword: "pl4tform",
		TenantID:        "tenant-1",
	})
	require.NoError(t, err)
	return p
}

func TestNewPlatformValidation(t *testing.T) {
	_, err := NewPlatform(context.Background(), PlatformConfig{ServiceAccount: "a", ServicePassword: "b"})
	assert.ErrorContains(t, err, "hostname")

	_, err = NewPlatform(context.Background(), PlatformConfig{Hostname: "platform.example"})
	assert.ErrorContains(t, err, "service account")
}

func TestPlatformGetUserSendsAuthHeaders(t *testing.T) {
	p := newTestPlatform(t)

	out, err := p.GetUser(context.Background(), "u-123")
	require.NoError(t, err)
	assert.Equal(t, "u-123", out["userId"])
	assert.Equal(t, "Bearer pf-token", out["auth"])
	assert.Equal(t, "tenant-1", out["tenant"])
}

func TestPlatformSearchUser(t *testing.T) {
	p := newTestPlatform(t)

	out, err := p.SearchUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "user_searchbyname", out["report"])
	assert.Equal(t, "%alice%", out["searchString"])

	_, err = p.SearchUser(context.Background(), "")
	assert.ErrorContains(t, err, "username")
}

func TestPlatformDeleteUserVerifies(t *testing.T) {
	p := newTestPlatform(t)

	decision, err := p.DeleteUser(context.Background(), "u-123")
	require.NoError(t, err)
	assert.Equal(t, []any{"u-123"}, decision.Result["removed"])
	// The follow-up search ran with the same id.
	assert.Equal(t, "%u-123%", decision.Verification["searchString"])
}
