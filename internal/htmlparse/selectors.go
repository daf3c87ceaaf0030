package htmlparse

import "regexp"

// containerSelectors are tried in order; the first one matching any node wins.
var containerSelectors = []string{
	// review modal
	`[aria-modal="true"] div.fysCi > div.RHo1pe`,
	`[aria-modal="true"] div.VfPpkd-wzTsW > div.RHo1pe`,
	`[aria-modal="true"] div.RHo1pe`,
	`[aria-modal="true"] .RHo1pe`,
	// dialog variants
	`[role="dialog"] div.RHo1pe`,
	`[role="dialog"] .RHo1pe`,
	`.bN96Pf div.RHo1pe`,
	`.Q8A9H div.RHo1pe`,
	// listing page
	`div.RHo1pe`,
	`[data-review-id]`,
	`header[data-review-id]`,
	`[aria-modal="true"] div[data-review-id]`,
	`[role="dialog"] div[data-review-id]`,
	`.pa1cbe`,
	`.d15Mdf`,
	`.bAhLNe`,
	`div[data-g-id="reviews"] div.RHo1pe`,
	`div[data-g-id="reviews"] div.EGFGHd`,
}

const (
	heuristicCandidateCap = 100
	lastResortSelector    = `div[data-g-id="reviews"] > div.EGFGHd`

	heuristicRatingSelector   = `div[aria-label]`
	heuristicUsernameSelector = `.X43Kjb, .X5PpBb`
	heuristicDateSelector     = `time, .bp9Aid`

	containerShape = `div.RHo1pe, div.EGFGHd`
	reviewIDAttr   = "data-review-id"
)

var usernameSelectors = []string{
	".X43Kjb",
	".X5PpBb",
	".gSGphe",
	".ynVncd",
	"[data-reviewer-name]",
}

var ratingSelectors = []string{
	`[role="img"][aria-label]`,
	`[aria-label*="star"]`,
}

var dateSelectors = []string{
	".bp9Aid",
	"time",
}

var bodySelectors = []string{
	`[jsname="fbQN7e"]`,
	`[jsname="bN97Pc"]`,
	`[data-review-text]`,
	".h3YV2d",
	".Jtu6Td",
	".UD7Dzf",
	".K7oBsc",
	".RGJjCe",
	".po6LEe",
	".Rc2H0b",
}

// bodyNoiseWords disqualify a generic div from being taken as the body.
var bodyNoiseWords = []string{"star", "rating", "date", "helpful"}

const (
	minGenericBodyLen  = 20
	minUsernameLen     = 3
	maxUsernameLen     = 29
	leadingUsernameTag = "more_vert"
)

var (
	usernameBeforeMenu = regexp.MustCompile(`^(.+?)\s+` + leadingUsernameTag)
	ratingNumber       = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)
	monthDate          = regexp.MustCompile(
		`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},\s+\d{4}`)
	helpfulCount = regexp.MustCompile(
		`(?i)(\d+(?:[.,]\d+)*)\s+(?:people|person)\s+found\s+this\s+review\s+helpful|\b(\d+(?:[.,]\d+)*)\s+found\s+this\s+helpful`)
	versionLabel    = regexp.MustCompile(`(?i)Version\s+([\d.]+)`)
	helpfulTrailer  = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)*\s+(?:people|person)\s+found.*`)
	versionTrailer  = regexp.MustCompile(`(?i)Version\s+[\d.]+.*`)
	hasDigit        = regexp.MustCompile(`\d`)
	starLabelFilter = regexp.MustCompile(`(?i)star`)
)
