package entitlement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quickai/quickai/internal/domain"
)

// MaxDays is the longest fixed grant. Anything longer should be unlimited.
const MaxDays = 36500

// Duration is the length of a premium grant, either a whole number of days or unlimited.
// The zero value is unlimited.
type Duration struct {
	days int
}

// Unlimited is a non-expiring grant.
var Unlimited = Duration{}

// namedDurations are the plan names offered to operators.
var namedDurations = map[string]int{
	"1d": 1,
	"7d": 7,
	"1m": 30,
	"3m": 90,
	"1y": 365,
	"3y": 1095,
}

// Days returns a fixed-length duration. Zero means unlimited.
func Days(n int) (Duration, error) {
	if n < 0 || n > MaxDays {
		return Duration{}, fmt.Errorf("%w: %d days (0..%d)", domain.ErrInvalidDuration, n, MaxDays)
	}
	return Duration{days: n}, nil
}

// ParseDuration accepts "unlimited", a plan name (1d, 7d, 1m, 3m, 1y, 3y),
// "<n>d" or a bare day count.
func ParseDuration(s string) (Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return Duration{}, fmt.Errorf("%w: empty", domain.ErrInvalidDuration)
	case "unlimited", "forever":
		return Unlimited, nil
	}
	if n, ok := namedDurations[s]; ok {
		return Duration{days: n}, nil
	}

	n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, s)
	}
	return Days(n)
}

// IsUnlimited reports whether the grant never expires.
func (d Duration) IsUnlimited() bool { return d.days == 0 }

// Days returns the day count, 0 for unlimited.
func (d Duration) Days() int { return d.days }

func (d Duration) String() string {
	if d.IsUnlimited() {
		return "unlimited"
	}
	return strconv.Itoa(d.days) + "d"
}
