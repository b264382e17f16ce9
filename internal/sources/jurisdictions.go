package sources

import (
	"sort"
	"strings"

	dberrors "github.com/gchickering21/downballot/internal/errors"
)

// stateCodes is the set of canonical two-letter jurisdiction keys
var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "DC": true, "FL": true,
	"GA": true, "HI": true, "ID": true, "IL": true, "IN": true,
	"IA": true, "KS": true, "KY": true, "LA": true, "ME": true,
	"MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true,
	"NJ": true, "NM": true, "NY": true, "NC": true, "ND": true,
	"OH": true, "OK": true, "OR": true, "PA": true, "RI": true,
	"SC": true, "SD": true, "TN": true, "TX": true, "UT": true,
	"VT": true, "VA": true, "WA": true, "WV": true, "WI": true,
	"WY": true,
}

// stateNames maps lowered full state names to canonical keys
var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT",
	"delaware": "DE", "district of columbia": "DC", "florida": "FL",
	"georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY",
	"louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT",
	"nebraska": "NE", "nevada": "NV", "new hampshire": "NH",
	"new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA",
	"rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT",
	"virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
}

// stateFullNames maps canonical keys back to display names
var stateFullNames = func() map[string]string {
	out := make(map[string]string, len(stateNames))
	for name, code := range stateNames {
		out[code] = titleCase(name)
	}
	return out
}()

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "of" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Canonicalize resolves a free-form jurisdiction string to its canonical
// two-letter key. Normalization is total and deterministic: every accepted
// input maps to exactly one key; anything else is UNKNOWN_JURISDICTION.
// Accepted shapes: "nc", "NC", "North Carolina", "north_carolina",
// "north-carolina".
func Canonicalize(input string) (string, error) {
	cleaned := strings.TrimSpace(input)
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	cleaned = strings.ReplaceAll(cleaned, "-", " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if cleaned == "" {
		return "", dberrors.New(
			dberrors.UnknownJurisdiction,
			"jurisdiction is empty; pass a state name or two-letter code",
			nil,
		)
	}

	if len(cleaned) == 2 {
		code := strings.ToUpper(cleaned)
		if stateCodes[code] {
			return code, nil
		}
	}

	if code, ok := stateNames[strings.ToLower(cleaned)]; ok {
		return code, nil
	}

	return "", dberrors.New(
		dberrors.UnknownJurisdiction,
		"jurisdiction '"+input+"' is not recognized; pass a US state name or two-letter code",
		nil,
	)
}

// JurisdictionName returns the display name for a canonical key
func JurisdictionName(code string) string {
	if name, ok := stateFullNames[code]; ok {
		return name
	}
	return code
}

// AllJurisdictions returns every canonical key, sorted
func AllJurisdictions() []string {
	out := make([]string, 0, len(stateCodes))
	for code := range stateCodes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
