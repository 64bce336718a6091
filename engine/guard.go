package engine

import (
	"net/url"
	"strings"

	"github.com/use-agent/stayscan/models"
	"github.com/use-agent/stayscan/validator"
)

// challengeMarkers appear on bot-check interstitials served in place of the
// listing. They go away on a later attempt, usually through another engine.
var challengeMarkers = []string{
	"px-captcha",
	"cf-challenge",
	"/cdn-cgi/challenge-platform/",
	"verify you are human",
}

var challengeTitles = []string{
	"just a moment",
	"access denied",
	"attention required",
}

// CheckPage rejects fetched pages that are not the requested listing:
// an empty body, a bot challenge, or a redirect to a non-listing page
// such as search results for a delisted home.
func CheckPage(requestURL string, res *FetchResult) error {
	engineName := res.EngineName
	if strings.TrimSpace(res.HTML) == "" {
		return Transient(engineName, "empty response body", nil)
	}

	title := strings.ToLower(res.Title)
	for _, m := range challengeTitles {
		if strings.Contains(title, m) {
			return Transient(engineName, "bot challenge page", nil)
		}
	}
	lower := strings.ToLower(res.HTML)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return Transient(engineName, "bot challenge page", nil)
		}
	}

	if res.FinalURL != "" && res.FinalURL != requestURL {
		if u, err := url.Parse(res.FinalURL); err == nil && !validator.IsListingPath(u.Path) {
			return &FetchError{
				Engine:     engineName,
				Kind:       models.FailurePermanent,
				StatusCode: res.StatusCode,
				Reason:     "redirected away from the listing to " + u.Path,
			}
		}
	}
	return nil
}
