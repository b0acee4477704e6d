package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"vaultmcp/vault"
)

type toolDef struct {
	tool    mcp.Tool
	handler server.ToolHandlerFunc
}

func (s *Server) registerTools(enabled []string) {
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}

	registered := 0
	for _, def := range s.toolDefs() {
		if len(allowed) > 0 && !allowed[def.tool.Name] {
			continue
		}
		s.mcp.AddTool(def.tool, def.handler)
		registered++
	}
	log.Info().Int("tools", registered).Msg("registered vault tools")
}

//nolint:funlen
func (s *Server) toolDefs() []toolDef {
	defs := []toolDef{
		{
			tool: mcp.NewTool("health_check",
				mcp.WithDescription("Return the vault server health status."),
			),
			handler: s.handleHealthCheck,
		},
		{
			tool: mcp.NewTool("get_secret",
				mcp.WithDescription("Fetch a secret by its numeric id."),
				mcp.WithNumber("id", mcp.Required(), mcp.Description("Secret identifier")),
				mcp.WithBoolean("summary", mcp.Description("Return only the summary view")),
			),
			handler: s.handleGetSecret,
		},
		{
			tool: mcp.NewTool("search_secrets",
				mcp.WithDescription("Search secrets by text."),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
				mcp.WithBoolean("lookup", mcp.Description("Use the lightweight id/name lookup view")),
			),
			handler: s.handleSearchSecrets,
		},
		{
			tool: mcp.NewTool("get_folder",
				mcp.WithDescription("Fetch a folder and its children by id."),
				mcp.WithNumber("id", mcp.Required(), mcp.Description("Folder identifier")),
			),
			handler: s.handleGetFolder,
		},
		{
			tool: mcp.NewTool("search_folders",
				mcp.WithDescription("Search folders by text."),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
				mcp.WithBoolean("lookup", mcp.Description("Use the lightweight id/name lookup view")),
			),
			handler: s.handleSearchFolders,
		},
		{
			tool: mcp.NewTool("search_users",
				mcp.WithDescription("Search active users by text."),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
			),
			handler: s.handleSearchUsers,
		},
		{
			tool: mcp.NewTool("folder_management",
				mcp.WithDescription("Create, update, delete or list folders."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of get, list, create, update, delete"),
					mcp.Enum("get", "list", "create", "update", "delete")),
				mcp.WithNumber("folder_id", mcp.Description("Folder identifier for get/update/delete")),
				mcp.WithObject("data", mcp.Description("Folder body for create/update")),
			),
			handler: s.handleFolderManagement,
		},
		{
			tool: mcp.NewTool("user_management",
				mcp.WithDescription("Create, update, delete or fetch users."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of get, create, update, delete"),
					mcp.Enum("get", "create", "update", "delete")),
				mcp.WithNumber("user_id", mcp.Description("User identifier for get/update/delete")),
				mcp.WithObject("data", mcp.Description("User body for create/update")),
			),
			handler: s.handleUserManagement,
		},
		{
			tool: mcp.NewTool("group_management",
				mcp.WithDescription("Create, delete, fetch or list groups."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of get, list, create, delete"),
					mcp.Enum("get", "list", "create", "delete")),
				mcp.WithNumber("group_id", mcp.Description("Group identifier for get/delete")),
				mcp.WithObject("data", mcp.Description("Group body for create")),
			),
			handler: s.handleGroupManagement,
		},
		{
			tool: mcp.NewTool("role_management",
				mcp.WithDescription("List roles or fetch a single role."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of list, get"),
					mcp.Enum("list", "get")),
				mcp.WithNumber("role_id", mcp.Description("Role identifier for get")),
			),
			handler: s.handleRoleManagement,
		},
		{
			tool: mcp.NewTool("user_group_management",
				mcp.WithDescription("List, add or remove a user's group memberships."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of get, add, remove"),
					mcp.Enum("get", "add", "remove")),
				mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User identifier")),
				mcp.WithArray("group_ids", mcp.Description("Group identifiers for add/remove"),
					mcp.Items(map[string]any{"type": "number"})),
			),
			handler: s.handleUserGroupManagement,
		},
		{
			tool: mcp.NewTool("user_role_management",
				mcp.WithDescription("List, assign or revoke a user's roles."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of get, add, remove"),
					mcp.Enum("get", "add", "remove")),
				mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User identifier")),
				mcp.WithArray("role_ids", mcp.Description("Role identifiers for add/remove"),
					mcp.Items(map[string]any{"type": "number"})),
			),
			handler: s.handleUserRoleManagement,
		},
		{
			tool: mcp.NewTool("group_role_management",
				mcp.WithDescription("List, attach or detach roles on a group."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of list, add, remove"),
					mcp.Enum("list", "add", "remove")),
				mcp.WithNumber("group_id", mcp.Required(), mcp.Description("Group identifier")),
				mcp.WithArray("role_ids", mcp.Description("Role identifiers for add/remove"),
					mcp.Items(map[string]any{"type": "number"})),
			),
			handler: s.handleGroupRoleManagement,
		},
		{
			tool: mcp.NewTool("run_report",
				mcp.WithDescription("Run a SQL report against the vault database and return its rows."),
				mcp.WithString("sql_query", mcp.Required(), mcp.Description("Report SQL")),
				mcp.WithString("report_name", mcp.Description("Name for the temporary report")),
			),
			handler: s.handleRunReport,
		},
		{
			tool: mcp.NewTool("check_secret_template",
				mcp.WithDescription("Fetch a secret template definition."),
				mcp.WithNumber("template_id", mcp.Required(), mcp.Description("Template identifier")),
			),
			handler: s.handleCheckSecretTemplate,
		},
		{
			tool: mcp.NewTool("get_secret_template_field",
				mcp.WithDescription("Fetch a single secret template field definition."),
				mcp.WithNumber("field_id", mcp.Required(), mcp.Description("Field identifier")),
			),
			handler: s.handleGetSecretTemplateField,
		},
		{
			tool: mcp.NewTool("get_pending_access_requests",
				mcp.WithDescription("List secret access requests awaiting a decision."),
			),
			handler: s.handlePendingAccessRequests,
		},
		{
			tool: mcp.NewTool("handle_access_request",
				mcp.WithDescription("Approve or deny a pending secret access request."),
				mcp.WithNumber("request_id", mcp.Required(), mcp.Description("Access request identifier")),
				mcp.WithString("status", mcp.Required(),
					mcp.Description("Decision, Approved or Denied"),
					mcp.Enum("Approved", "Denied")),
				mcp.WithString("response_comment", mcp.Required(), mcp.Description("Comment explaining the decision")),
				mcp.WithString("start_date", mcp.Description("ISO start date when approving")),
				mcp.WithString("expiration_date", mcp.Description("ISO expiration date when approving")),
			),
			handler: s.handleAccessRequest,
		},
		{
			tool: mcp.NewTool("get_inbox_messages",
				mcp.WithDescription("Page through the account's inbox messages."),
				mcp.WithString("read_status_filter",
					mcp.Description("Filter on read status"),
					mcp.Enum("Read", "Unread")),
				mcp.WithNumber("take", mcp.Description("Number of messages to return, 20 by default")),
				mcp.WithNumber("skip", mcp.Description("Number of messages to skip")),
			),
			handler: s.handleInboxMessages,
		},
		{
			tool: mcp.NewTool("mark_inbox_messages_read",
				mcp.WithDescription("Mark inbox messages as read or unread."),
				mcp.WithArray("message_ids", mcp.Required(),
					mcp.Description("Message identifiers to update"),
					mcp.Items(map[string]any{"type": "number"})),
				mcp.WithBoolean("read", mcp.Description("True marks as read, false as unread; defaults to true")),
			),
			handler: s.handleMarkInboxMessages,
		},
		{
			tool: mcp.NewTool("get_secret_environment_variable",
				mcp.WithDescription("Return shell code that exports a secret's username and password as environment variables."),
				mcp.WithNumber("secret_id", mcp.Required(), mcp.Description("Secret identifier")),
				mcp.WithString("environment", mcp.Required(),
					mcp.Description("Target shell, one of bash, powershell, cmd"),
					mcp.Enum("bash", "powershell", "cmd")),
			),
			handler: s.handleSecretEnvironmentVariable,
		},
		{
			tool: mcp.NewTool("search",
				mcp.WithDescription("Search the enabled vault object kinds and return results with id, title, text and url."),
				mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
			),
			handler: s.handleSearch,
		},
		{
			tool: mcp.NewTool("fetch",
				mcp.WithDescription("Fetch the full record behind a search result id in <type>/<id> format."),
				mcp.WithString("id", mcp.Required(), mcp.Description("Identifier from a search result")),
			),
			handler: s.handleFetch,
		},
	}

	if s.platform != nil {
		defs = append(defs, toolDef{
			tool: mcp.NewTool("platform_user_management",
				mcp.WithDescription("Manage users on the Delinea Platform identity service."),
				mcp.WithString("action", mcp.Required(),
					mcp.Description("One of get, create, update, delete, search"),
					mcp.Enum("get", "create", "update", "delete", "search")),
				mcp.WithString("user_id", mcp.Description("User identifier for get/update/delete")),
				mcp.WithString("username", mcp.Description("Username for search")),
				mcp.WithObject("data", mcp.Description("User body for create/update")),
			),
			handler: s.handlePlatformUserManagement,
		})
	}
	return defs
}

// jsonResult renders a vault response as a JSON tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports a vault failure as a tool error, never a protocol
// error.
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// intSlice reads a JSON number array argument.
func intSlice(request mcp.CallToolRequest, key string) ([]int, error) {
	raw, ok := request.GetArguments()[key]
	if !ok {
		return nil, fmt.Errorf("%s is required", key)
	}
	values, ok := raw.([]any)
	if !ok || len(values) == 0 {
		return nil, fmt.Errorf("%s must be a non-empty array of numbers", key)
	}
	out := make([]int, 0, len(values))
	for _, v := range values {
		num, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%s must contain only numbers", key)
		}
		out = append(out, int(num))
	}
	return out, nil
}

// objectArg reads an optional JSON object argument.
func objectArg(request mcp.CallToolRequest, key string) vault.Document {
	if raw, ok := request.GetArguments()[key].(map[string]any); ok {
		return raw
	}
	return vault.Document{}
}

func (s *Server) handleHealthCheck(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.vault.HealthCheck(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleGetSecret(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}
	result, err := s.vault.GetSecret(ctx, id, request.GetBool("summary", false))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleSearchSecrets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}
	result, err := s.vault.SearchSecrets(ctx, query, request.GetBool("lookup", false))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleGetFolder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}
	result, err := s.vault.GetFolder(ctx, id)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleSearchFolders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}
	result, err := s.vault.SearchFolders(ctx, query, request.GetBool("lookup", false))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleSearchUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}
	result, err := s.vault.SearchUsers(ctx, query)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleFolderManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}
	folderID := request.GetInt("folder_id", 0)

	var result any
	switch action {
	case "get":
		result, err = s.vault.GetFolder(ctx, folderID)
	case "list":
		result, err = s.vault.ListFolders(ctx, url.Values{})
	case "create":
		result, err = s.vault.CreateFolder(ctx, objectArg(request, "data"))
	case "update":
		result, err = s.vault.UpdateFolder(ctx, folderID, objectArg(request, "data"))
	case "delete":
		result, err = s.vault.DeleteFolder(ctx, folderID)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleUserManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}
	userID := request.GetInt("user_id", 0)

	var result any
	switch action {
	case "get":
		result, err = s.vault.GetUser(ctx, userID)
	case "create":
		result, err = s.vault.CreateUser(ctx, objectArg(request, "data"))
	case "update":
		result, err = s.vault.UpdateUser(ctx, userID, objectArg(request, "data"))
	case "delete":
		result, err = s.vault.DeleteUser(ctx, userID)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleGroupManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}
	groupID := request.GetInt("group_id", 0)

	var result any
	switch action {
	case "get":
		result, err = s.vault.GetGroup(ctx, groupID)
	case "list":
		result, err = s.vault.ListGroups(ctx, url.Values{})
	case "create":
		result, err = s.vault.CreateGroup(ctx, objectArg(request, "data"))
	case "delete":
		result, err = s.vault.DeleteGroup(ctx, groupID)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleRoleManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}

	var result any
	switch action {
	case "list":
		result, err = s.vault.ListRoles(ctx, url.Values{})
	case "get":
		result, err = s.vault.GetRole(ctx, request.GetInt("role_id", 0))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleUserGroupManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}
	userID, err := request.RequireInt("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required"), nil
	}

	var result any
	switch action {
	case "get":
		result, err = s.vault.UserGroups(ctx, userID)
	case "add", "remove":
		groupIDs, argErr := intSlice(request, "group_ids")
		if argErr != nil {
			return mcp.NewToolResultError(argErr.Error()), nil
		}
		if action == "add" {
			result, err = s.vault.AddUserGroups(ctx, userID, groupIDs)
		} else {
			result, err = s.vault.RemoveUserGroups(ctx, userID, groupIDs)
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleUserRoleManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}
	userID, err := request.RequireInt("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id argument is required"), nil
	}

	var result any
	switch action {
	case "get":
		result, err = s.vault.UserRoles(ctx, userID)
	case "add", "remove":
		roleIDs, argErr := intSlice(request, "role_ids")
		if argErr != nil {
			return mcp.NewToolResultError(argErr.Error()), nil
		}
		if action == "add" {
			result, err = s.vault.AddUserRoles(ctx, userID, roleIDs)
		} else {
			result, err = s.vault.RemoveUserRoles(ctx, userID, roleIDs)
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleGroupRoleManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}
	groupID, err := request.RequireInt("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id argument is required"), nil
	}

	var result any
	switch action {
	case "list":
		result, err = s.vault.GroupRoles(ctx, groupID)
	case "add", "remove":
		roleIDs, argErr := intSlice(request, "role_ids")
		if argErr != nil {
			return mcp.NewToolResultError(argErr.Error()), nil
		}
		if action == "add" {
			result, err = s.vault.AddGroupRoles(ctx, groupID, roleIDs)
		} else {
			result, err = s.vault.RemoveGroupRoles(ctx, groupID, roleIDs)
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleRunReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlQuery, err := request.RequireString("sql_query")
	if err != nil {
		return mcp.NewToolResultError("sql_query argument is required"), nil
	}
	result, err := s.vault.RunReport(ctx, request.GetString("report_name", ""), sqlQuery)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleCheckSecretTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := request.RequireInt("template_id")
	if err != nil {
		return mcp.NewToolResultError("template_id argument is required"), nil
	}
	result, err := s.vault.GetSecretTemplate(ctx, templateID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleGetSecretTemplateField(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fieldID, err := request.RequireInt("field_id")
	if err != nil {
		return mcp.NewToolResultError("field_id argument is required"), nil
	}
	result, err := s.vault.GetSecretTemplateField(ctx, fieldID)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handlePendingAccessRequests(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.vault.PendingAccessRequests(ctx)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleAccessRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	requestID, err := request.RequireInt("request_id")
	if err != nil {
		return mcp.NewToolResultError("request_id argument is required"), nil
	}
	status, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("status argument is required"), nil
	}
	comment, err := request.RequireString("response_comment")
	if err != nil {
		return mcp.NewToolResultError("response_comment argument is required"), nil
	}

	decision, err := s.vault.DecideAccessRequest(ctx, requestID, status, comment,
		request.GetString("start_date", ""), request.GetString("expiration_date", ""))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(decision)
}

func (s *Server) handleInboxMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.vault.InboxMessages(ctx,
		request.GetString("read_status_filter", ""),
		request.GetInt("take", 20),
		request.GetInt("skip", 0))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}

func (s *Server) handleMarkInboxMessages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	messageIDs, err := intSlice(request, "message_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	decision, err := s.vault.MarkInboxMessages(ctx, messageIDs, request.GetBool("read", true))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(decision)
}

func (s *Server) handlePlatformUserManagement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action argument is required"), nil
	}
	userID := request.GetString("user_id", "")

	var result any
	switch action {
	case "get":
		if userID == "" {
			return mcp.NewToolResultError("user_id is required for get"), nil
		}
		result, err = s.platform.GetUser(ctx, userID)
	case "search":
		result, err = s.platform.SearchUser(ctx, request.GetString("username", ""))
	case "create":
		result, err = s.platform.CreateUser(ctx, objectArg(request, "data"))
	case "update":
		if userID == "" {
			return mcp.NewToolResultError("user_id is required for update"), nil
		}
		result, err = s.platform.UpdateUser(ctx, userID, objectArg(request, "data"))
	case "delete":
		if userID == "" {
			return mcp.NewToolResultError("user_id is required for delete"), nil
		}
		result, err = s.platform.DeleteUser(ctx, userID)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown action: %s", action)), nil
	}
	if err != nil {
		return toolError(err)
	}
	return jsonResult(result)
}
