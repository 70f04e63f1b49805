package normalize

import "strings"

// regionCodes maps full US state/territory names to their 2-letter codes.
var regionCodes = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"district of columbia": "DC",
	"washington dc":        "DC",
	"florida":              "FL",
	"georgia":              "GA",
	"guam":                 "GU",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new hampshire":        "NH",
	"new jersey":           "NJ",
	"new mexico":           "NM",
	"new york":             "NY",
	"north carolina":       "NC",
	"north dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"puerto rico":          "PR",
	"rhode island":         "RI",
	"south carolina":       "SC",
	"south dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virgin islands":       "VI",
	"virginia":             "VA",
	"washington":           "WA",
	"west virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
}

// Region canonicalizes a free-text region into a 2-letter uppercase code.
// Already-2-character input is just uppercased. Unknown longer names fall
// back to the first two letters uppercased; that fallback is lossy and is
// the accepted tradeoff for never rejecting a record over its region.
func Region(text string) string {
	s := CleanText(text)
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) < 2 {
		// Too short to be a code; let the assembler's sentinel take over.
		return ""
	}
	if len(r) == 2 {
		return strings.ToUpper(s)
	}
	if code, ok := regionCodes[strings.ToLower(s)]; ok {
		return code
	}
	return strings.ToUpper(string(r[:2]))
}
