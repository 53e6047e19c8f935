package handlers

import "time"

// America/Sao_Paulo for all date stamping
var tzSaoPaulo *time.Location

func init() {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		// fallback to a fixed offset if tzdata is missing
		tzSaoPaulo = time.FixedZone("BRT", -3*3600)
		return
	}
	tzSaoPaulo = loc
}

// ISO date string for "today" at the site, e.g. "2006-01-02"
func isoToday() string {
	return time.Now().In(tzSaoPaulo).Format("2006-01-02")
}
