package github

import (
	"fmt"
	"strings"

	"github.com/matzehuels/activitygraph/pkg/activity"
)

const webURL = "https://github.com/"

// Classify maps a decoded event to the normalized activity model. Every
// event yields exactly one activity event; payloads without a dedicated
// kind fall back to [activity.KindOther].
func Classify(e Event) activity.Event {
	out := activity.Event{
		ID:        e.ID,
		Source:    activity.SourceGitHub,
		CreatedAt: e.CreatedAt,
		Repo:      e.Repo,
		URL:       repoURL(e.Repo),
		Kind:      activity.KindOther,
	}

	switch p := e.Payload.(type) {
	case PushPayload:
		out.Kind = activity.KindPush
		out.Message = fmt.Sprintf("Pushed %s to %s", plural(p.commitCount(), "commit"), branchLabel(p.Ref, e.Repo))
		if p.Head != "" && e.Repo != "" {
			out.URL = webURL + e.Repo + "/commit/" + p.Head
		}

	case PullRequestPayload:
		n := p.Number
		if n == 0 {
			n = p.PullRequest.Number
		}
		switch {
		case p.Action == "opened" || p.Action == "reopened":
			out.Kind = activity.KindPullRequestOpened
			out.Message = fmt.Sprintf("Opened PR #%d in %s: %s", n, e.Repo, p.PullRequest.Title)
		case p.Action == "closed" && p.PullRequest.Merged:
			out.Kind = activity.KindPullRequestMerged
			out.Message = fmt.Sprintf("Merged PR #%d in %s: %s", n, e.Repo, p.PullRequest.Title)
		default:
			out.Message = fmt.Sprintf("%s PR #%d in %s: %s", capitalize(p.Action), n, e.Repo, p.PullRequest.Title)
		}
		out.URL = firstNonEmpty(p.PullRequest.HTMLURL, out.URL)

	case ReleasePayload:
		name := firstNonEmpty(p.Release.Name, p.Release.TagName)
		if p.Action == "published" || p.Action == "" {
			out.Kind = activity.KindReleasePublished
			out.Message = fmt.Sprintf("Released %s of %s", name, e.Repo)
		} else {
			out.Message = fmt.Sprintf("%s release %s of %s", capitalize(p.Action), name, e.Repo)
		}
		out.URL = firstNonEmpty(p.Release.HTMLURL, out.URL)

	case ForkPayload:
		out.Kind = activity.KindForkCreated
		out.Message = fmt.Sprintf("Forked %s to %s", e.Repo, p.Forkee.FullName)
		out.URL = firstNonEmpty(p.Forkee.HTMLURL, out.URL)

	case WatchPayload:
		out.Kind = activity.KindStarGiven
		out.Message = "Starred " + e.Repo

	case IssuesPayload:
		if p.Action == "opened" || p.Action == "reopened" {
			out.Kind = activity.KindIssueOpened
			out.Message = fmt.Sprintf("Opened issue #%d in %s: %s", p.Issue.Number, e.Repo, p.Issue.Title)
		} else {
			out.Message = fmt.Sprintf("%s issue #%d in %s: %s", capitalize(p.Action), p.Issue.Number, e.Repo, p.Issue.Title)
		}
		out.URL = firstNonEmpty(p.Issue.HTMLURL, out.URL)

	case IssueCommentPayload:
		out.Kind = activity.KindIssueCommented
		out.Message = fmt.Sprintf("Commented on #%d in %s: %s", p.Issue.Number, e.Repo, p.Issue.Title)
		out.URL = firstNonEmpty(p.Comment.HTMLURL, p.Issue.HTMLURL, out.URL)

	case UnknownPayload:
		out.Message = fallbackMessage(p.Type, e.Repo)

	default:
		out.Message = fallbackMessage(e.Type, e.Repo)
	}
	return out
}

// ClassifyAll classifies events and orders them newest first regardless
// of the order the API returned.
func ClassifyAll(events []Event) []activity.Event {
	out := make([]activity.Event, len(events))
	for i, e := range events {
		out[i] = Classify(e)
	}
	activity.SortNewestFirst(out)
	return out
}

func (p PushPayload) commitCount() int {
	if p.Size > 0 {
		return p.Size
	}
	return len(p.Commits)
}

// fallbackMessage strips the "Event" suffix from the type and names the
// repository: "CreateEvent" in "octo/app" → "Create in octo/app".
func fallbackMessage(typ, repo string) string {
	label := strings.TrimSuffix(typ, "Event")
	if label == "" {
		label = "Activity"
	}
	if repo == "" {
		return label
	}
	return label + " in " + repo
}

func branchLabel(ref, repo string) string {
	branch := strings.TrimPrefix(ref, "refs/heads/")
	if branch == "" {
		return repo
	}
	return repo + "@" + branch
}

func repoURL(repo string) string {
	if repo == "" {
		return ""
	}
	return webURL + repo
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func capitalize(s string) string {
	if s == "" {
		return "Updated"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
