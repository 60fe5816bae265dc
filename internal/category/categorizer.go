package category

import "strings"

const (
	Politics      = "Politics"
	Crypto        = "Crypto"
	Sports        = "Sports"
	Entertainment = "Entertainment"
	Economics     = "Economics"
	Other         = "Other"
)

// ordered: the first bucket with a keyword hit wins, so a question like
// "Will Bitcoin hit 100k before the election?" lands in Politics only if
// no crypto keyword matched first.
var buckets = []struct {
	name     string
	keywords []string
}{
	{Politics, []string{
		"election", "president", "presidential", "senate", "congress",
		"governor", "parliament", "minister", "vote", "ballot",
		"impeach", "primary", "nominee", "democrat", "republican",
	}},
	{Crypto, []string{
		"bitcoin", "btc", "ethereum", "eth ", "crypto", "solana",
		"dogecoin", "token", "blockchain", "defi", "nft",
	}},
	{Sports, []string{
		"nba", "nfl", "mlb", "nhl", "ufc", "soccer", "football",
		"basketball", "baseball", "tennis", "golf", "super bowl",
		"world cup", "premier league", "champions league", "olympic",
	}},
	{Entertainment, []string{
		"oscar", "grammy", "emmy", "movie", "film", "album",
		"box office", "celebrity", "netflix", "spotify",
	}},
	{Economics, []string{
		"fed ", "federal reserve", "inflation", "gdp", "interest rate",
		"recession", "unemployment", "cpi", "rate cut", "rate hike",
		"stock market", "s&p",
	}},
}

// Categorize assigns one of the fixed categories from the market title and
// question text. Unmatched markets fall through to Other.
func Categorize(title, question string) string {
	text := " " + strings.ToLower(title+" "+question) + " "
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(text, kw) {
				return b.name
			}
		}
	}
	return Other
}
