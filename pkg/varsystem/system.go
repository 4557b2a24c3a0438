package varsystem

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// System pseudo-variable names, usable as {{$name}} in any template.
const (
	SystemTimestamp    = "$timestamp"
	SystemIsoTimestamp = "$isoTimestamp"
	SystemRandomInt    = "$randomInt"
	SystemGUID         = "$guid"
	SystemRandom       = "$random"
)

const randomIntMax = 1000000

func systemVar(key string) (string, bool) {
	switch key {
	case SystemTimestamp:
		return strconv.FormatInt(time.Now().UnixMilli(), 10), true
	case SystemIsoTimestamp:
		return time.Now().UTC().Format(time.RFC3339), true
	case SystemRandomInt:
		return strconv.Itoa(rand.Intn(randomIntMax)), true
	case SystemGUID:
		return uuid.NewString(), true
	case SystemRandom:
		return strconv.FormatFloat(rand.Float64(), 'f', -1, 64), true
	default:
		return "", false
	}
}
