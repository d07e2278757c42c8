// Package github fetches a user's public activity from the GitHub API.
//
// # Usage
//
//	client := github.NewClient(c, os.Getenv("GITHUB_TOKEN"), time.Minute)
//	events, err := client.FetchEvents(ctx, "octocat", 30, false)
//
// # Event Payloads
//
// The events endpoint returns typed envelopes whose payload shape depends on
// the type. [Envelope.Decode] turns each into an [Event] carrying exactly
// one [Payload] variant: [PushPayload], [PullRequestPayload],
// [ReleasePayload], [ForkPayload], [WatchPayload], [IssuesPayload],
// [IssueCommentPayload], or [UnknownPayload] for anything else.
//
// [Classify] maps the variant to an activity kind and a rendered message.
// Unknown types become [activity.KindOther] with a message such as
// "Create in octo/app", so no event is dropped for its type alone.
//
// # Authentication
//
// A token is optional. Without one the API allows 60 requests/hour;
// exhausting the quota surfaces as a rate-limit error.
package github
