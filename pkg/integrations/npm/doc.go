// Package npm fetches a maintainer's published packages from the npm registry.
//
// # Usage
//
//	client := npm.NewClient(c, time.Hour)
//	pkgs, err := client.SearchMaintainer(ctx, "sindresorhus", 20, false)
//
// # Enrichment
//
// [Client.SearchMaintainer] sorts results by publish date, newest first, and
// then asks the downloads API for the weekly count of the first
// [EnrichLimit] packages concurrently. A failed count leaves
// WeeklyDownloads nil; it never fails the search.
package npm
