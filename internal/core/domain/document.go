package domain

import "github.com/google/uuid"

// ContentType classifies what a raw item is, which decides the usefulness
// filtering policy applied to it.
type ContentType string

const (
	// ContentReadme is a repository readme.
	ContentReadme ContentType = "readme"

	// ContentPR is a pull request title and body.
	ContentPR ContentType = "pr"

	// ContentCommits is a batch of commit messages.
	ContentCommits ContentType = "commit"

	// ContentMessage is a chat message, possibly with thread replies.
	ContentMessage ContentType = "message"
)

// Source tags for ingested documents and searched sources.
const (
	SourceGitHub = "github"
	SourceSlack  = "slack"
)

// ThreadReply is one reply under a chat message. Replies are filtered and
// refined individually before being folded into the parent item's content.
type ThreadReply struct {
	// Author is the display name of the reply author.
	Author string

	// Text is the raw reply text.
	Text string
}

// RawItem is one unit of source content produced by a connector, before the
// shared filter, fit, dedup and embed pipeline runs over it.
type RawItem struct {
	// DocID is the human-readable composite key, e.g. "gh_pr_api-service_42"
	// or "slack_msg_C012AB3CD_1700000000_000100". Storage identity derives
	// from it deterministically.
	DocID string

	// Source is the source tag ("github" or "slack").
	Source string

	// Type classifies the content.
	Type ContentType

	// Group is the repository or channel the item came from. Used for
	// per-group failure reporting.
	Group string

	// Content is the raw text.
	Content string

	// Author is the item author's display name, when known.
	Author string

	// URL is the provenance link.
	URL string

	// Thread holds chat thread replies, message items only.
	Thread []ThreadReply

	// Metadata carries source-specific payload fields stored verbatim.
	Metadata map[string]any
}

// IngestedDocument is one unit of content made searchable.
type IngestedDocument struct {
	// DocID is the logical composite key.
	DocID string

	// StorageID is the deterministic identifier derived from DocID.
	StorageID string

	// Content is the indexed text, possibly summarised or truncated.
	Content string

	// Payload is the stored metadata (tenant, source, type, url, author...).
	Payload map[string]any
}

// StorageID maps a logical document key to its stable storage identifier.
// Pure function: the same docID always yields the same UUID (version 5,
// DNS namespace), which is what makes re-ingestion idempotent and lets
// existence checks run before any expensive embedding work.
func StorageID(docID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(docID)).String()
}
