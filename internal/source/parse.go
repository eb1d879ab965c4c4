package source

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ParseAuctionDate converts the results table's "d/m/yy" auction date to
// a calendar date in UTC.
func ParseAuctionDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, eris.Errorf("source: malformed auction date %q", s)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "source: auction date day %q", s)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "source: auction date month %q", s)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "source: auction date year %q", s)
	}

	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, eris.Errorf("source: auction date out of range %q", s)
	}
	if year < 100 {
		year += 2000
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
