package vault

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Document is a raw vault API response. The vault's resource model is
// passed through to callers untouched.
type Document = map[string]any

// HealthCheck returns the vault's service health document.
func (s *Session) HealthCheck(ctx context.Context) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, "/v1/healthcheck", url.Values{"noBus": {"true"}}, nil, &out)
	return out, err
}

// GetSecret fetches a secret by id, optionally only its summary view.
func (s *Session) GetSecret(ctx context.Context, id int, summary bool) (Document, error) {
	path := fmt.Sprintf("/v1/secrets/%d", id)
	if summary {
		path += "/summary"
	}
	var out Document
	err := s.Do(ctx, http.MethodGet, path, nil, nil, &out)
	return out, err
}

// SearchSecrets searches secrets by text. lookup selects the lightweight
// id/name lookup view.
func (s *Session) SearchSecrets(ctx context.Context, query string, lookup bool) (Document, error) {
	path := "/v1/secrets"
	if lookup {
		path += "/lookup"
	}
	var out Document
	err := s.Do(ctx, http.MethodGet, path, url.Values{"filter.searchText": {query}}, nil, &out)
	return out, err
}

// GetFolder fetches a folder and its children.
func (s *Session) GetFolder(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/folders/%d", id),
		url.Values{"getAllChildren": {"true"}}, nil, &out)
	return out, err
}

// SearchFolders searches folders by text.
func (s *Session) SearchFolders(ctx context.Context, query string, lookup bool) (Document, error) {
	path := "/v1/folders"
	if lookup {
		path += "/lookup"
	}
	var out Document
	err := s.Do(ctx, http.MethodGet, path, url.Values{"filter.searchText": {query}}, nil, &out)
	return out, err
}

// ListFolders lists folders with optional query parameters.
func (s *Session) ListFolders(ctx context.Context, query url.Values) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, "/v1/folders", query, nil, &out)
	return out, err
}

// CreateFolder creates a folder from the given body.
func (s *Session) CreateFolder(ctx context.Context, body Document) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPost, "/v1/folders", nil, body, &out)
	return out, err
}

// UpdateFolder replaces a folder definition.
func (s *Session) UpdateFolder(ctx context.Context, id int, body Document) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPut, fmt.Sprintf("/v1/folders/%d", id), nil, body, &out)
	return out, err
}

// DeleteFolder removes a folder.
func (s *Session) DeleteFolder(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/folders/%d", id), nil, nil, &out)
	return out, err
}

// SearchUsers searches active users by text.
func (s *Session) SearchUsers(ctx context.Context, query string) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, "/v1/users", url.Values{"filter.searchText": {query}}, nil, &out)
	return out, err
}

// GetUser fetches a user by id.
func (s *Session) GetUser(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/users/%d", id), nil, nil, &out)
	return out, err
}

// CreateUser creates a user from the given body.
func (s *Session) CreateUser(ctx context.Context, body Document) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPost, "/v1/users", nil, body, &out)
	return out, err
}

// UpdateUser replaces a user definition.
func (s *Session) UpdateUser(ctx context.Context, id int, body Document) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPut, fmt.Sprintf("/v1/users/%d", id), nil, body, &out)
	return out, err
}

// DeleteUser removes a user.
func (s *Session) DeleteUser(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/users/%d", id), nil, nil, &out)
	return out, err
}

// ListRoles lists roles with optional query parameters.
func (s *Session) ListRoles(ctx context.Context, query url.Values) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, "/v1/roles", query, nil, &out)
	return out, err
}

// GetRole fetches a role by id.
func (s *Session) GetRole(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/roles/%d", id), nil, nil, &out)
	return out, err
}

// UserRoles lists the roles assigned to a user.
func (s *Session) UserRoles(ctx context.Context, userID int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/users/%d/roles", userID), nil, nil, &out)
	return out, err
}

// AddUserRoles assigns roles to a user.
func (s *Session) AddUserRoles(ctx context.Context, userID int, roleIDs []int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPost, fmt.Sprintf("/v1/users/%d/roles", userID), nil,
		Document{"roleIds": roleIDs}, &out)
	return out, err
}

// RemoveUserRoles revokes roles from a user.
func (s *Session) RemoveUserRoles(ctx context.Context, userID int, roleIDs []int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/users/%d/roles", userID), nil,
		Document{"roleIds": roleIDs}, &out)
	return out, err
}

// GetGroup fetches a group by id.
func (s *Session) GetGroup(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/groups/%d", id), nil, nil, &out)
	return out, err
}

// ListGroups lists groups with optional query parameters.
func (s *Session) ListGroups(ctx context.Context, query url.Values) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, "/v1/groups", query, nil, &out)
	return out, err
}

// CreateGroup creates a group from the given body.
func (s *Session) CreateGroup(ctx context.Context, body Document) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPost, "/v1/groups", nil, body, &out)
	return out, err
}

// DeleteGroup removes a group.
func (s *Session) DeleteGroup(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/groups/%d", id), nil, nil, &out)
	return out, err
}

// UserGroups lists the groups a user belongs to.
func (s *Session) UserGroups(ctx context.Context, userID int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/users/%d/groups", userID), nil, nil, &out)
	return out, err
}

// AddUserGroups adds a user to the given groups.
func (s *Session) AddUserGroups(ctx context.Context, userID int, groupIDs []int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPost, fmt.Sprintf("/v1/users/%d/groups", userID), nil,
		Document{"groupIds": groupIDs}, &out)
	return out, err
}

// RemoveUserGroups removes a user from the given groups.
func (s *Session) RemoveUserGroups(ctx context.Context, userID int, groupIDs []int) (Document, error) {
	query := url.Values{}
	for _, id := range groupIDs {
		query.Add("groupIds", strconv.Itoa(id))
	}
	var out Document
	err := s.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/users/%d/groups", userID), query, nil, &out)
	return out, err
}

// GroupRoles lists the roles attached to a group.
func (s *Session) GroupRoles(ctx context.Context, groupID int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/groups/%d/roles", groupID), nil, nil, &out)
	return out, err
}

// AddGroupRoles attaches roles to a group.
func (s *Session) AddGroupRoles(ctx context.Context, groupID int, roleIDs []int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodPost, fmt.Sprintf("/v1/groups/%d/roles", groupID), nil,
		Document{"roleIds": roleIDs}, &out)
	return out, err
}

// RemoveGroupRoles detaches roles from a group.
func (s *Session) RemoveGroupRoles(ctx context.Context, groupID int, roleIDs []int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/groups/%d/roles", groupID), nil,
		Document{"roleIds": roleIDs}, &out)
	return out, err
}

// GetSecretTemplate fetches a secret template definition.
func (s *Session) GetSecretTemplate(ctx context.Context, id int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/secret-templates/%d", id), nil, nil, &out)
	return out, err
}

// GetSecretTemplateField fetches a single template field definition.
func (s *Session) GetSecretTemplateField(ctx context.Context, fieldID int) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/secret-templates/fields/%d", fieldID), nil, nil, &out)
	return out, err
}

// Decision pairs a mutation result with a follow-up read of the same
// resource, so callers can see what the change actually produced.
type Decision struct {
	Result       Document `json:"result"`
	Verification Document `json:"verification"`
}

// AccessRequestApproved and AccessRequestDenied are the two decisions a
// pending secret access request accepts.
const (
	AccessRequestApproved = "Approved"
	AccessRequestDenied   = "Denied"
)

// PendingAccessRequests lists secret access requests awaiting a decision
// from the current account, newest first.
func (s *Session) PendingAccessRequests(ctx context.Context) (Document, error) {
	var out Document
	err := s.Do(ctx, http.MethodGet, "/v1/secret-access-requests", url.Values{
		"filter.isMyRequest":  {"false"},
		"filter.status":       {"Pending"},
		"skip":                {"0"},
		"take":                {"60"},
		"sortBy[0].direction": {"desc"},
		"sortBy[0].name":      {"startDate"},
	}, nil, &out)
	return out, err
}

// DecideAccessRequest approves or denies a pending access request and
// re-reads it afterwards. A failed verification read is reported inside
// the decision, not as an error.
func (s *Session) DecideAccessRequest(ctx context.Context, requestID int, status, comment, startDate, expirationDate string) (*Decision, error) {
	if status != AccessRequestApproved && status != AccessRequestDenied {
		return nil, fmt.Errorf("vault: invalid access request status %q", status)
	}
	body := Document{
		"secretAccessRequestId": requestID,
		"status":                status,
		"responseComment":       comment,
	}
	if startDate != "" {
		body["startDate"] = startDate
	}
	if expirationDate != "" {
		body["expirationDate"] = expirationDate
	}

	var result Document
	if err := s.Do(ctx, http.MethodPut, "/v1/secret-access-requests", nil, body, &result); err != nil {
		return nil, err
	}

	var verification Document
	err := s.Do(ctx, http.MethodGet, fmt.Sprintf("/v1/secret-access-requests/%d", requestID), nil, nil, &verification)
	if err != nil {
		log.Warn().Err(err).Int("request_id", requestID).Msg("access request verification read failed")
		verification = Document{"error": err.Error()}
	}
	return &Decision{Result: result, Verification: verification}, nil
}

// InboxMessages pages through the account's inbox. readStatus filters on
// "Read" or "Unread" when non-empty.
func (s *Session) InboxMessages(ctx context.Context, readStatus string, take, skip int) (Document, error) {
	query := url.Values{
		"take": {strconv.Itoa(take)},
		"skip": {strconv.Itoa(skip)},
	}
	if readStatus != "" {
		query.Set("filter.readStatusFilter", readStatus)
	}
	var out Document
	err := s.Do(ctx, http.MethodGet, "/v1/inbox/messages", query, nil, &out)
	return out, err
}

// MarkInboxMessages flips the read flag on the given messages and
// returns the first inbox page as verification.
func (s *Session) MarkInboxMessages(ctx context.Context, messageIDs []int, read bool) (*Decision, error) {
	body := Document{"data": Document{"messageIds": messageIDs, "read": read}}
	var result Document
	if err := s.Do(ctx, http.MethodPost, "/v1/inbox/update-read", nil, body, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = Document{"success": true}
	}

	var verification Document
	err := s.Do(ctx, http.MethodGet, "/v1/inbox/messages", url.Values{"take": {"20"}, "skip": {"0"}}, nil, &verification)
	if err != nil {
		log.Warn().Err(err).Msg("inbox verification read failed")
		verification = Document{"error": err.Error()}
	}
	return &Decision{Result: result, Verification: verification}, nil
}

// ReportResult is the tabular payload of an executed report.
type ReportResult struct {
	Columns []any `json:"columns"`
	Rows    []any `json:"rows"`
}

// CreateReport creates a report and returns its numeric identifier.
func (s *Session) CreateReport(ctx context.Context, name, sqlQuery string) (int, error) {
	var out struct {
		ID int `json:"id"`
	}
	err := s.Do(ctx, http.MethodPost, "/v1/reports", nil, Document{
		"name":        name,
		"description": "Auto-generated report for " + name,
		"categoryId":  1,
		"reportSql":   sqlQuery,
	}, &out)
	if err != nil {
		return 0, fmt.Errorf("create report %q: %w", name, err)
	}
	return out.ID, nil
}

// ExecuteReport runs a report with its default parameters.
func (s *Session) ExecuteReport(ctx context.Context, reportID int) (*ReportResult, error) {
	var out ReportResult
	err := s.Do(ctx, http.MethodPost, "/v1/reports/execute", nil, Document{
		"id":                   reportID,
		"useDefaultParameters": true,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("execute report %d: %w", reportID, err)
	}
	return &out, nil
}

// DeleteReport removes a report.
func (s *Session) DeleteReport(ctx context.Context, reportID int) error {
	return s.Do(ctx, http.MethodDelete, fmt.Sprintf("/v1/reports/%d", reportID), nil, nil, nil)
}

// RunReport creates a temporary report, executes it and cleans it up,
// returning the tabular result. Cleanup failures are logged, not fatal.
func (s *Session) RunReport(ctx context.Context, name, sqlQuery string) (*ReportResult, error) {
	if name == "" {
		name = "MCP Generated Report"
	}
	reportID, err := s.CreateReport(ctx, name, sqlQuery)
	if err != nil {
		return nil, err
	}
	result, err := s.ExecuteReport(ctx, reportID)

	if delErr := s.DeleteReport(ctx, reportID); delErr != nil {
		log.Warn().Err(delErr).Int("report_id", reportID).Msg("failed to delete temporary report")
	}
	return result, err
}
