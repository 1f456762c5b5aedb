package mail

import (
	"fmt"
	"strings"
	"time"
)

const queryDateLayout = "2006/01/02"

// Query builds a search string of the form
// "after:YYYY/MM/DD [before:YYYY/MM/DD] subject:(term)". A zero before is omitted.
func Query(after, before time.Time, subject string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "after:%s", after.Format(queryDateLayout))
	if !before.IsZero() {
		fmt.Fprintf(&b, " before:%s", before.Format(queryDateLayout))
	}
	fmt.Fprintf(&b, " subject:(%s)", subject)
	return b.String()
}
