package arrivals

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
)

var yearPattern = regexp.MustCompile(`\d{4}`)

// YearFromFilename returns the first 4-digit run in the base name of key.
func YearFromFilename(key string) (int, error) {
	base := path.Base(key)
	m := yearPattern.FindString(base)
	if m == "" {
		return 0, fmt.Errorf("%w: %s", ErrNoYearInFilename, key)
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoYearInFilename, key)
	}
	return year, nil
}
