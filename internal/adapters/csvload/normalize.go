package csvload

import (
	"strings"
)

var directions = map[string]string{
	"north": "n",
	"south": "s",
	"east":  "e",
	"west":  "w",
}

var punctuation = strings.NewReplacer(".", "", ",", " ", "\n", " ", "\r", " ")

// NormalizeAddress folds an address into the key used to match package rows to
// distance rows: lower case, periods and commas removed, anything from the
// first parenthesis on dropped, direction words abbreviated.
func NormalizeAddress(address string) string {
	s := strings.ToLower(address)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	s = punctuation.Replace(s)

	words := strings.Fields(s)
	for i, w := range words {
		if short, ok := directions[w]; ok {
			words[i] = short
		}
	}
	return strings.Join(words, " ")
}
