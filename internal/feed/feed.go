// Package feed downloads adjusted daily closes from market data vendors.
package feed

import (
	"errors"
	"time"
)

var ErrNoData = errors.New("no data returned for any ticker")

const dateLayout = "2006-01-02"

// endOrNow resolves an open-ended request.
func endOrNow(end time.Time) time.Time {
	if end.IsZero() {
		return time.Now().UTC()
	}
	return end
}
