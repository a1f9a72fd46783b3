package expressions

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/flowedit/pkg/schema"
)

var timerParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Timer is the parsed schedule of a timer activity.
type Timer struct {
	Expression string
	delay      time.Duration // set for plain durations
	schedule   cron.Schedule // set for cron specs and descriptors
}

// ParseTimer accepts a Go duration ("90m"), a cron descriptor ("@daily",
// "@every 5m") or a five-field cron spec ("0 9 * * MON-FRI").
func ParseTimer(expression string) (*Timer, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty timer expression")
	}

	if d, err := time.ParseDuration(expr); err == nil {
		if d <= 0 {
			return nil, schema.NewErrorf(schema.ErrCodeExpression,
				"timer duration %q must be positive", expr)
		}
		return &Timer{Expression: expr, delay: d}, nil
	}

	sched, err := timerParser.Parse(expr)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExpression,
			"invalid timer expression %q: %s", expr, err.Error()).
			WithCause(err).
			WithDetails(map[string]any{"expression": expr})
	}
	return &Timer{Expression: expr, schedule: sched}, nil
}

// Next returns the first firing time strictly after from.
func (t *Timer) Next(from time.Time) time.Time {
	if t.schedule != nil {
		return t.schedule.Next(from)
	}
	return from.Add(t.delay)
}

// IsRecurring reports whether the timer fires more than once.
func (t *Timer) IsRecurring() bool {
	return t.schedule != nil
}
