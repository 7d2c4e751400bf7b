package mcp

import "github.com/mark3labs/mcp-go/mcp"

var messageToolDef = mcp.NewTool("triage_message",
	mcp.WithDescription("Send one chat message to the triage assistant and get its reply. "+
		"Reuse session_id across calls to continue a conversation; omit it to start an anonymous session. "+
		"The reply carries the triage level once the case is locked. Not medical advice."),
	mcp.WithString("session_id",
		mcp.Description("Conversation id. Empty starts a new anonymous session; the id used is returned as sessionId."),
	),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("The user's message, e.g. \"fever and cough since yesterday\"."),
	),
)

var listCasesToolDef = mcp.NewTool("triage_list_cases",
	mcp.WithDescription("List stored triage cases, newest first."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of cases (default from config history_limit, max 500)."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var getCaseToolDef = mcp.NewTool("triage_get_case",
	mcp.WithDescription("Fetch one stored case record by id, optionally with a markdown report."),
	mcp.WithString("case_id",
		mcp.Required(),
		mcp.Description("Case id as returned by triage_list_cases."),
	),
	mcp.WithBoolean("include_report",
		mcp.Description("Also render the case as markdown."),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var symptomsToolDef = mcp.NewTool("triage_symptoms",
	mcp.WithDescription("List the symptoms the assistant recognizes, with weights, red flags and aliases."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var exportToolDef = mcp.NewTool("triage_export",
	mcp.WithDescription("Export stored cases to a JSONL file (header line plus one record per case)."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Destination file; must end in .jsonl."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of cases, newest first (0 exports all)."),
	),
)
