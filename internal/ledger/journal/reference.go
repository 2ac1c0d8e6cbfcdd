package journal

import (
	"fmt"
	"sync"
	"time"
)

// ReferenceFormat documents the wire format of transaction references:
// TXN-{YYYYMMDD}-{last 6 digits of epoch millis}.
const ReferenceFormat = "TXN-%s-%06d"

var refMu sync.Mutex
var lastRefMillis int64

// NewReferenceNumber derives a unique reference from the clock. Two calls
// landing on the same millisecond get consecutive suffixes so references stay
// distinct within a process.
func NewReferenceNumber(now time.Time) string {
	millis := now.UnixMilli()
	refMu.Lock()
	if millis <= lastRefMillis {
		millis = lastRefMillis + 1
	}
	lastRefMillis = millis
	refMu.Unlock()
	return fmt.Sprintf(ReferenceFormat, now.Format("20060102"), millis%1000000)
}
