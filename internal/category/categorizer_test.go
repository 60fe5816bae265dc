package category

import "testing"

func TestCategorize(t *testing.T) {
	cases := []struct {
		name     string
		title    string
		question string
		want     string
	}{
		{"election", "Presidential election 2028", "Who wins the presidential election?", Politics},
		{"senate race", "GA Senate", "Will the Republican nominee win the Georgia senate race?", Politics},
		{"bitcoin", "Bitcoin above 100k", "Will Bitcoin close above $100,000?", Crypto},
		{"nba", "NBA Finals", "Will the Lakers win the NBA finals?", Sports},
		{"world cup", "World Cup 2030", "Will Brazil win the World Cup?", Sports},
		{"oscars", "Best Picture", "Will Dune win the Oscar for best picture?", Entertainment},
		{"fed", "Rate decision", "Will the Federal Reserve announce a rate cut in March?", Economics},
		{"inflation", "CPI print", "Will CPI come in above 3%?", Economics},
		{"fallthrough", "Weather in NYC", "Will it snow on Christmas?", Other},
		{"empty", "", "", Other},
		{"politics beats crypto order", "Election token", "Will the election winner launch a token?", Politics},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Categorize(tc.title, tc.question); got != tc.want {
				t.Fatalf("Categorize(%q, %q) = %q, want %q", tc.title, tc.question, got, tc.want)
			}
		})
	}
}
