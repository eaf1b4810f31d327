package version

import "time"

// timeNow is swapped in tests to pin history row dates.
var timeNow = time.Now
