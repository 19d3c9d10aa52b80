package report

import "strings"

// Header variants in lookup order. Exports truncate column names inconsistently.
var (
	hdrCallID     = []string{"call id", "call session id", "session id", "call i", "id"}
	hdrDirection  = []string{"call direction", "call direct", "direction"}
	hdrFromNumber = []string{"from number", "from numb", "caller number", "from"}
	hdrFromName   = []string{"from name", "from extension", "from ext", "caller name"}
	hdrToNumber   = []string{"to number", "to numb", "called number", "to"}
	hdrToName     = []string{"to name", "to extension", "to ext", "called name"}
	hdrStartTime  = []string{"call start time", "start time", "call start", "date / time", "date/time", "date"}
	hdrDuration   = []string{"call length", "call duration", "duration", "call len", "length"}
	hdrResult     = []string{"call result", "result", "call res", "disposition"}

	hdrUserName   = []string{"user name", "user", "name", "extension name", "extension"}
	hdrInbound    = []string{"inbound calls", "incoming calls", "inbound call", "inbound"}
	hdrOutbound   = []string{"outbound calls", "outgoing calls", "outbound call", "outbound"}
	hdrTotal      = []string{"total calls", "total call", "calls", "total"}
	hdrHandleTime = []string{"total handle time", "total handle", "handle time", "total talk time", "talk time"}

	hdrFromTime = []string{"from time", "from date", "start date"}
)

var (
	callHeaders = [][]string{hdrCallID, hdrDirection, hdrFromNumber, hdrFromName, hdrToNumber, hdrToName, hdrStartTime, hdrDuration, hdrResult}
	userHeaders = [][]string{hdrUserName, hdrInbound, hdrOutbound, hdrTotal, hdrHandleTime}
)

func normalizeHeader(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// firstPresent returns the value of the first candidate column that exists in
// row and holds a non-blank value.
func firstPresent(row map[string]string, candidates []string) string {
	for _, c := range candidates {
		if v, ok := row[c]; ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// headerScore counts how many logical fields a candidate header row covers.
func headerScore(cells []string, fields [][]string) int {
	present := make(map[string]bool, len(cells))
	for _, c := range cells {
		present[normalizeHeader(c)] = true
	}
	score := 0
	for _, variants := range fields {
		for _, v := range variants {
			if present[v] {
				score++
				break
			}
		}
	}
	return score
}
