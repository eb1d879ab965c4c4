package model

import (
	"strconv"
	"strings"
)

var priceStripper = strings.NewReplacer("$", "", ",", "", "-", "", " ", "")

// ParsePrice converts a displayed price such as "$1,230,500" to an
// integer dollar amount. It reports false when nothing parseable
// remains after stripping currency formatting; callers treat that as
// "no price", never as an error.
func ParsePrice(display string) (int, bool) {
	cleaned := priceStripper.Replace(strings.TrimSpace(display))
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
