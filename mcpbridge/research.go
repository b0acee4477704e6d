package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"vaultmcp/vault"
)

// searchResult is the result-object shape research-capable MCP clients
// expect from the generic search and fetch tools.
type searchResult struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	URL      string         `json:"url"`
	Metadata vault.Document `json:"metadata,omitempty"`
}

func (s *Server) searchKind(ctx context.Context, kind, query string) (vault.Document, error) {
	switch kind {
	case "secret":
		return s.vault.SearchSecrets(ctx, query, false)
	case "user":
		return s.vault.SearchUsers(ctx, query)
	case "folder":
		return s.vault.SearchFolders(ctx, query, false)
	case "group":
		return s.vault.ListGroups(ctx, url.Values{"filter.searchText": {query}})
	case "role":
		return s.vault.ListRoles(ctx, url.Values{"filter.searchText": {query}})
	}
	return nil, fmt.Errorf("unknown object kind %q", kind)
}

func (s *Server) fetchKind(ctx context.Context, kind string, id int) (vault.Document, error) {
	switch kind {
	case "secret":
		return s.vault.GetSecret(ctx, id, false)
	case "user":
		return s.vault.GetUser(ctx, id)
	case "folder":
		return s.vault.GetFolder(ctx, id)
	case "group":
		return s.vault.GetGroup(ctx, id)
	case "role":
		return s.vault.GetRole(ctx, id)
	}
	return nil, fmt.Errorf("unknown object kind %q", kind)
}

func recordID(rec map[string]any) (int, bool) {
	for _, key := range []string{"id", "userId", "folderId", "groupId", "roleId"} {
		if v, ok := rec[key].(float64); ok {
			return int(v), true
		}
	}
	return 0, false
}

func recordTitle(rec map[string]any, fallback string) string {
	for _, key := range []string{"name", "username", "folderName", "groupName", "roleName"} {
		if v, ok := rec[key].(string); ok && v != "" {
			return v
		}
	}
	return fallback
}

func (s *Server) resourceURL(kind string, id int) string {
	base := s.vault.BaseURL() + "/api"
	if kind == "secret" {
		return fmt.Sprintf("%s/v2/secrets/%d", base, id)
	}
	return fmt.Sprintf("%s/v1/%ss/%d", base, kind, id)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}

	kinds := make([]string, 0, len(s.searchKinds))
	for kind := range s.searchKinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	results := make([]searchResult, 0)
	for _, kind := range kinds {
		data, err := s.searchKind(ctx, kind, query)
		if err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("search failed for object kind")
			continue
		}
		records, _ := data["records"].([]any)
		for _, raw := range records {
			rec, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			id, ok := recordID(rec)
			if !ok {
				continue
			}
			text, _ := json.Marshal(rec)
			results = append(results, searchResult{
				ID:    fmt.Sprintf("%s/%d", kind, id),
				Title: recordTitle(rec, strconv.Itoa(id)),
				Text:  string(text),
				URL:   s.resourceURL(kind, id),
			})
		}
	}
	return jsonResult(map[string]any{"results": results})
}

func (s *Server) handleFetch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}
	parts := strings.SplitN(identifier, "/", 2)
	if len(parts) != 2 {
		return mcp.NewToolResultError("id must be in <type>/<id> format"), nil
	}
	kind := strings.TrimSuffix(strings.ToLower(parts[0]), "s")
	if !s.fetchKinds[kind] {
		return mcp.NewToolResultError(fmt.Sprintf("fetch for %s not enabled", kind)), nil
	}
	objID, err := strconv.Atoi(parts[1])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("malformed object id %q", parts[1])), nil
	}

	doc, err := s.fetchKind(ctx, kind, objID)
	if err != nil {
		return toolError(err)
	}
	text, _ := json.Marshal(doc)
	return jsonResult(searchResult{
		ID:       identifier,
		Title:    recordTitle(doc, parts[1]),
		Text:     string(text),
		URL:      s.resourceURL(kind, objID),
		Metadata: doc,
	})
}

func (s *Server) handleSecretEnvironmentVariable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	secretID, err := request.RequireInt("secret_id")
	if err != nil {
		return mcp.NewToolResultError("secret_id argument is required"), nil
	}
	environment, err := request.RequireString("environment")
	if err != nil {
		return mcp.NewToolResultError("environment argument is required"), nil
	}

	target := fmt.Sprintf("%s/api/v2/secrets/%d", s.vault.BaseURL(), secretID)
	token := s.vault.Token()

	switch strings.ToLower(environment) {
	case "bash":
		return mcp.NewToolResultText(strings.Join([]string{
			fmt.Sprintf(`export SECRET_PASSWORD_%d="$(curl -H "Authorization: Bearer %s" %s | jq -r '.items[] | select(.fieldName == "Password") | .itemValue')"`, secretID, token, target),
			fmt.Sprintf(`export SECRET_USERNAME_%d="$(curl -H "Authorization: Bearer %s" %s | jq -r '.items[] | select(.fieldName == "Username") | .itemValue')"`, secretID, token, target),
		}, "\n")), nil
	case "powershell":
		return mcp.NewToolResultText(strings.Join([]string{
			fmt.Sprintf(`$headers = @{"Authorization" = "Bearer %s"}`, token),
			fmt.Sprintf(`$response = Invoke-RestMethod -Uri "%s" -Headers $headers`, target),
			`$passwordItem = $response.items | Where-Object { $_.fieldName -eq "Password" }`,
			`$usernameItem = $response.items | Where-Object { $_.fieldName -eq "Username" }`,
			fmt.Sprintf(`$env:SECRET_PASSWORD_%d = $passwordItem.itemValue`, secretID),
			fmt.Sprintf(`$env:SECRET_USERNAME_%d = $usernameItem.itemValue`, secretID),
		}, "\n")), nil
	case "cmd":
		return mcp.NewToolResultText(strings.Join([]string{
			fmt.Sprintf(`for /f "delims=" %%p in ('curl -H "Authorization: Bearer %s" %s ^| findstr /C:"fieldName=Password;" ^| findstr /C:"itemValue=" ^| head -n 1 ^| sed -E "s/.*itemValue=([^;]*);.*/\1/"') do set SECRET_PASSWORD_%d=%%p`, token, target, secretID),
			fmt.Sprintf(`for /f "delims=" %%u in ('curl -H "Authorization: Bearer %s" %s ^| findstr /C:"fieldName=Username;" ^| findstr /C:"itemValue=" ^| head -n 1 ^| sed -E "s/.*itemValue=([^;]*);.*/\1/"') do set SECRET_USERNAME_%d=%%u`, token, target, secretID),
		}, "\n")), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("unsupported environment: %s", environment)), nil
}
