package models

import "fmt"

// IssueKind classifies a recoverable problem found during a run.
type IssueKind string

const (
	IssueArchive          IssueKind = "archive"
	IssueMapping          IssueKind = "mapping"
	IssueEmptyEvidence    IssueKind = "empty_evidence"
	IssueNoDesignElements IssueKind = "no_design_elements"
	IssueNetwork          IssueKind = "network"
	IssueAuth             IssueKind = "auth"
	IssueParse            IssueKind = "parse"
	IssueCancelled        IssueKind = "cancelled"
)

// Issue is a recoverable error. Issues are accumulated and reported with the
// run; they never abort it.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Subject string    `json:"subject"`
	Detail  string    `json:"detail"`
}

func (i Issue) Error() string {
	if i.Subject == "" {
		return i.Detail
	}
	return fmt.Sprintf("%s: %s", i.Subject, i.Detail)
}

// NewIssue builds an Issue with a formatted detail message.
func NewIssue(kind IssueKind, subject, format string, args ...any) Issue {
	return Issue{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)}
}

// IssueMessages flattens issues into the plain error list shown to users.
func IssueMessages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Error())
	}
	return out
}
