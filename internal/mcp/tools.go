package mcp

import "github.com/mark3labs/mcp-go/mcp"

var discoverToolDef = mcp.NewTool("connection_discover",
	mcp.WithDescription("Rank stored SSH connections against a fuzzy query. "+
		"An empty query returns recently used connections first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Description("Free-text search term matched against name, host, bastion and tags")),
	mcp.WithNumber("limit", mcp.Description("Maximum candidates to return (default 10)"), mcp.Min(1)),
)

var showToolDef = mcp.NewTool("connection_show",
	mcp.WithDescription("Show one connection by id or exact name, including the ssh command it would run."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("target", mcp.Required(), mcp.Description("Connection id or exact name (case-insensitive)")),
)

var listToolDef = mcp.NewTool("connection_list",
	mcp.WithDescription("List stored connections, most recently used first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("tag", mcp.Description("Only connections carrying this tag")),
	mcp.WithBoolean("recent_only", mcp.Description("Only connections that have been used")),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (0 = all)"), mcp.Min(0)),
)

var recentToolDef = mcp.NewTool("connection_recent",
	mcp.WithDescription("List the most recently used connections."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default 5)"), mcp.Min(1)),
)

var addToolDef = mcp.NewTool("connection_add",
	mcp.WithDescription("Store a new SSH connection profile. Unset fields fall back to configured defaults."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Unique label (case-insensitive)")),
	mcp.WithString("host", mcp.Required(), mcp.Description("Target hostname or address")),
	mcp.WithString("user", mcp.Description("Remote login")),
	mcp.WithNumber("port", mcp.Description("Target port"), mcp.Min(1), mcp.Max(65535)),
	mcp.WithString("bastion", mcp.Description("Jump host")),
	mcp.WithBoolean("no_bastion", mcp.Description("Ignore the configured default bastion")),
	mcp.WithString("bastion_user", mcp.Description("Login on the jump host")),
	mcp.WithBoolean("use_kerberos", mcp.Description("Forward Kerberos credentials")),
	mcp.WithString("key_path", mcp.Description("Identity file path")),
	mcp.WithArray("tags", mcp.Description("Labels"), mcp.WithStringItems()),
)

var removeToolDef = mcp.NewTool("connection_remove",
	mcp.WithDescription("Delete a connection and its session history."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("target", mcp.Required(), mcp.Description("Connection id or exact name (case-insensitive)")),
)

var statsToolDef = mcp.NewTool("connection_stats",
	mcp.WithDescription("Summarize stored connections, tags and session outcomes."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var historyToolDef = mcp.NewTool("connection_history",
	mcp.WithDescription("List past ssh sessions, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("connection", mcp.Description("Connection id, or a substring of its name")),
	mcp.WithNumber("days", mcp.Description("Only sessions started within this many days"), mcp.Min(0)),
	mcp.WithBoolean("failed_only", mcp.Description("Only failed sessions")),
	mcp.WithNumber("limit", mcp.Description("Maximum sessions (default 20, max 500)"), mcp.Min(0)),
)
