// Package extract pulls structured entities out of a message with ordered
// pattern chains. Each intent family owns a prioritized list of alternative
// patterns; the first alternative that matches wins and the rest of the
// chain is skipped. Generic extractors and keyword buckets run afterwards
// and never overwrite a field the chain already produced. A field that
// nothing matched is simply absent from the entity map.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/models"
)

// pattern is one alternative in a chain: a compiled regexp whose first
// capture group lands under key.
type pattern struct {
	key string
	re  *regexp.Regexp
}

var (
	quotedRe = regexp.MustCompile(`['"]([^'"]+)['"]`)
	emailRe  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	numberRe = regexp.MustCompile(`\b(\d+)\b`)
)

// family maps an intent to the chain that knows its phrasing.
func family(intent string) string {
	switch intent {
	case models.IntentBugCreate:
		return "bug_create"
	case models.IntentTeamCreate:
		return "team_create"
	case models.IntentBugAssign:
		return "bug_assign"
	case models.IntentBugUpdateStatus:
		return "bug_update_status"
	case models.IntentBugSearch, models.IntentCommentSearch, models.IntentFileSearch,
		models.IntentTeamSearch, models.IntentUserSearch:
		return "search"
	case models.IntentCommentAdd:
		return "comment_add"
	case models.IntentFileAttach:
		return "file_attach"
	case models.IntentTeamAddMember:
		return "team_add_member"
	case models.IntentTeamDetails, models.IntentTeamSwitch, models.IntentTeamMembers, models.IntentTeamStats:
		return "team_ref"
	case models.IntentUserProfile:
		return "user_profile"
	default:
		return ""
	}
}

// chains holds the per-family pattern alternatives in priority order.
// Order inside each slice is the documented precedence; do not sort.
var chains = map[string][]pattern{
	"bug_create": {
		{key: "title", re: quotedRe},
		{key: "title", re: regexp.MustCompile(`(?i)\b(?:called|named|titled)\s+(.+?)\s*$`)},
		{key: "title", re: regexp.MustCompile(`(?i)\b(?:create|report|file|raise|add)\s+(?:a\s+)?(?:new\s+)?(?:bug|issue|problem)[:,]?\s+(?:that\s+)?(.+?)\s*$`)},
	},
	"team_create": {
		{key: "teamName", re: regexp.MustCompile(`(?i)\bteam\s+(?:called|named)\s+['"]?([A-Za-z0-9][\w -]*?)['"]?\s*$`)},
		{key: "teamName", re: quotedRe},
		{key: "teamName", re: regexp.MustCompile(`(?i)\b(?:create|make|start)\s+(?:a\s+)?(?:new\s+)?team\s+(.+?)\s*$`)},
	},
	"bug_assign": {
		{key: "assigneeName", re: regexp.MustCompile(`(?i)\bto\s+([A-Za-z][A-Za-z@._' -]*?)\s*$`)},
	},
	"bug_update_status": {
		{key: "statusPhrase", re: regexp.MustCompile(`(?i)\b(?:as|to)\s+(open|new|active|closed|resolved|fixed|done|in[ -]?progress|working|started)\b`)},
	},
	"search": {
		{key: "query", re: regexp.MustCompile(`(?i)\b(?:for|about|matching|mentioning|named)\s+['"]([^'"]+)['"]`)},
		{key: "query", re: regexp.MustCompile(`(?i)\b(?:for|about|matching|mentioning|named)\s+(.+?)\s*$`)},
		{key: "query", re: regexp.MustCompile(`(?i)\bwho\s+is\s+(.+?)\s*\??\s*$`)},
		{key: "query", re: regexp.MustCompile(`(?i)\b(?:search|find|look(?:ing)?\s+(?:up|for))\s+(?:bugs?|comments?|files?|teams?|users?)?\s*(.+?)\s*$`)},
	},
	"comment_add": {
		{key: "text", re: quotedRe},
		{key: "text", re: regexp.MustCompile(`(?i)\b(?:comment|note)\s+(?:on\s+bug\s+#?\d+\s+)?(?:that\s+|saying\s+)?(.+?)\s*$`)},
	},
	"file_attach": {
		{key: "fileName", re: quotedRe},
		{key: "fileName", re: regexp.MustCompile(`(?i)\b(?:attach|upload)\s+(?:file\s+)?([\w-]+\.\w+)`)},
	},
	"team_add_member": {
		{key: "memberIdentifier", re: regexp.MustCompile(`(\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b)`)},
		{key: "memberIdentifier", re: regexp.MustCompile(`(?i)\b(?:add|invite|bring)\s+([A-Za-z][A-Za-z .']*?)\s+(?:in)?to\b`)},
	},
	"team_ref": {
		{key: "teamName", re: regexp.MustCompile(`(?i)\bteam\s+['"]?([A-Za-z][\w-]*)['"]?\s*$`)},
	},
	"user_profile": {
		{key: "targetUserId", re: regexp.MustCompile(`(\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b)`)},
		{key: "targetName", re: regexp.MustCompile(`(?i)\b(?:of|for|about)\s+(?:user\s+)?([A-Za-z][A-Za-z .']*?)\s*$`)},
	},
}

// keyword buckets, highest precedence first. The first bucket with any
// keyword present in the message wins even when lower buckets also match.
type bucket struct {
	value    string
	keywords []string
}

var priorityBuckets = []bucket{
	{value: "high", keywords: []string{"high", "urgent", "critical", "important", "asap", "blocker"}},
	{value: "low", keywords: []string{"low", "minor", "trivial"}},
	{value: "medium", keywords: []string{"medium", "normal", "moderate"}},
}

var statusBuckets = []bucket{
	{value: "open", keywords: []string{"open", "new", "active"}},
	{value: "closed", keywords: []string{"closed", "resolved", "fixed", "done"}},
	{value: "in_progress", keywords: []string{"in progress", "in-progress", "working", "started"}},
}

// action verb stems used by the complexity classifier to spot composite
// requests.
var actionStems = map[string]string{
	"creat":  "create",
	"mak":    "create",
	"report": "create",
	"rais":   "create",
	"show":   "list",
	"list":   "list",
	"view":   "list",
	"display": "list",
	"updat":  "update",
	"chang":  "update",
	"set":    "update",
	"mark":   "update",
	"assign": "assign",
	"clos":   "close",
	"resolv": "close",
	"reopen": "reopen",
	"search": "search",
	"find":   "search",
	"add":    "add",
	"attach": "attach",
	"upload": "attach",
	"delet":  "delete",
	"remov":  "delete",
}

// Extractor applies the chains and buckets above. It is stateless and safe
// for concurrent use.
type Extractor struct {
	log logger.Logger
}

func New(log logger.Logger) *Extractor {
	return &Extractor{log: log.WithFields(map[string]interface{}{"stage": "extract"})}
}

// Extract populates pq.Entities, pq.Actions and pq.Filters from the raw
// message for the classified intent.
func (e *Extractor) Extract(intent string, pq *models.ParsedQuery) {
	message := pq.Raw
	lower := strings.ToLower(message)

	if fam := family(intent); fam != "" {
		e.runChain(chains[fam], message, pq.Entities)
	}

	// Generic extractors run unconditionally but never overwrite.
	if m := quotedRe.FindStringSubmatch(message); m != nil {
		setIfAbsent(pq.Entities, "quoted", m[1])
	}
	if m := emailRe.FindString(message); m != "" {
		setIfAbsent(pq.Entities, "email", m)
	}
	if m := numberRe.FindStringSubmatch(message); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			setIfAbsent(pq.Entities, "number", n)
		}
	}

	if v, ok := matchBucket(priorityBuckets, lower); ok {
		setIfAbsent(pq.Entities, "priority", v)
	}
	if v, ok := matchBucket(statusBuckets, lower); ok {
		setIfAbsent(pq.Entities, "status", v)
	}

	// statusPhrase from the bug_update_status chain normalizes through the
	// same buckets so "mark bug as fixed" and "fixed" agree.
	if phrase, ok := pq.Entities.GetString("statusPhrase"); ok {
		if v, found := matchBucket(statusBuckets, strings.ToLower(phrase)); found {
			pq.Entities["status"] = v
		}
		delete(pq.Entities, "statusPhrase")
	}

	pq.Actions = actions(pq.Tokens)

	if v, ok := pq.Entities.GetString("status"); ok {
		pq.Filters["status"] = v
	}
	if v, ok := pq.Entities.GetString("priority"); ok {
		pq.Filters["priority"] = v
	}

	e.log.Debug("entities extracted", map[string]interface{}{
		"intent":   intent,
		"entities": pq.Entities,
		"actions":  pq.Actions,
	})
}

func (e *Extractor) runChain(chain []pattern, message string, entities models.Entities) {
	for _, p := range chain {
		m := p.re.FindStringSubmatch(message)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		setIfAbsent(entities, p.key, value)
		return // first match wins, rest of the chain is skipped
	}
}

func matchBucket(buckets []bucket, lower string) (string, bool) {
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if containsWord(lower, kw) {
				return b.value, true
			}
		}
	}
	return "", false
}

// containsWord matches kw on word boundaries; kw may itself contain a space.
func containsWord(haystack, kw string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)
		beforeOK := start == 0 || !isWordChar(haystack[start-1])
		afterOK := end == len(haystack) || !isWordChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func actions(tokens []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range tokens {
		if a, ok := actionStems[t]; ok && !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func setIfAbsent(e models.Entities, key string, value interface{}) {
	if _, ok := e[key]; !ok {
		e[key] = value
	}
}
