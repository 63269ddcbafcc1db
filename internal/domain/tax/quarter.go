package tax

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quarter identifies the calendar quarter a government dataset snapshot is
// valid for. Quarters are the partitioning unit of the range index: a new
// quarter's import supersedes the old one for lookups while old quarters are
// retained for audit.
type Quarter struct {
	Year int
	Q    int // 1..4
}

// ParseQuarter parses identifiers of the form "2026Q1".
func ParseQuarter(s string) (Quarter, error) {
	parts := strings.SplitN(strings.ToUpper(strings.TrimSpace(s)), "Q", 2)
	if len(parts) != 2 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: expected format YYYYQN", s)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1990 || year > 2200 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: bad year", s)
	}
	q, err := strconv.Atoi(parts[1])
	if err != nil || q < 1 || q > 4 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: quarter must be 1-4", s)
	}
	return Quarter{Year: year, Q: q}, nil
}

// QuarterOf returns the quarter containing the given instant.
func QuarterOf(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

// Start returns the first instant of the quarter in UTC.
func (q Quarter) Start() time.Time {
	return time.Date(q.Year, time.Month((q.Q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following quarter in UTC.
func (q Quarter) End() time.Time {
	return q.Next().Start()
}

// Next returns the following quarter.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// Contains reports whether the instant falls inside the quarter.
func (q Quarter) Contains(t time.Time) bool {
	return !t.Before(q.Start()) && t.Before(q.End())
}

// Before reports whether q starts before other.
func (q Quarter) Before(other Quarter) bool {
	if q.Year != other.Year {
		return q.Year < other.Year
	}
	return q.Q < other.Q
}

// IsZero reports whether the quarter is the zero value.
func (q Quarter) IsZero() bool {
	return q.Year == 0 && q.Q == 0
}

// String returns the canonical "2026Q1" form.
func (q Quarter) String() string {
	return fmt.Sprintf("%dQ%d", q.Year, q.Q)
}
