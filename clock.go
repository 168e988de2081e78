package dispatchz

import "github.com/zoobzio/clockz"

// Clock provides time operations for deterministic testing.
type Clock = clockz.Clock

// Timer represents a single event timer.
type Timer = clockz.Timer

// RealClock is the default Clock using standard time.
var RealClock Clock = clockz.RealClock
