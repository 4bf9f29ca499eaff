// internal/models/intents.go
package models

// Canonical intent names. The catalog and the dispatch registry are both
// keyed by these; adding an intent means adding it in both places.
const (
	IntentGreeting     = "greeting"
	IntentHelp         = "help"
	IntentGoodbye      = "goodbye"
	IntentGeneralQuery = "general_query"
	IntentError        = "error"
	IntentContextClear = "context_clear"

	IntentBugCreate       = "bug_create"
	IntentBugList         = "bug_list"
	IntentBugDetails      = "bug_details"
	IntentBugUpdateStatus = "bug_update_status"
	IntentBugClose        = "bug_close"
	IntentBugReopen       = "bug_reopen"
	IntentBugAssign       = "bug_assign"
	IntentBugSearch       = "bug_search"
	IntentBugStats        = "bug_stats"
	IntentMyBugs          = "my_bugs"
	IntentUnassignedBugs  = "unassigned_bugs"
	IntentCriticalBugs    = "critical_bugs"
	IntentRecentBugs      = "recent_bugs"

	IntentCommentAdd    = "comment_add"
	IntentCommentList   = "comment_list"
	IntentCommentSearch = "comment_search"

	IntentFileAttach = "file_attach"
	IntentFileList   = "file_list"
	IntentFileSearch = "file_search"

	IntentTeamCreate    = "team_create"
	IntentTeamList      = "team_list"
	IntentTeamDetails   = "team_details"
	IntentTeamSwitch    = "team_switch"
	IntentTeamAddMember = "team_add_member"
	IntentTeamMembers   = "team_members"
	IntentTeamSearch    = "team_search"
	IntentTeamStats     = "team_stats"

	IntentUserSearch  = "user_search"
	IntentUserProfile = "user_profile"
	IntentWhoAmI      = "whoami"

	IntentDashboard = "dashboard"
	IntentAnalytics = "analytics"
)
