package expressions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/pkg/schema"
)

func TestParseTimer(t *testing.T) {
	from := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		expr      string
		want      time.Time
		recurring bool
	}{
		{"90m", from.Add(90 * time.Minute), false},
		{" 2h ", from.Add(2 * time.Hour), false},
		{"@every 5m", from.Add(5 * time.Minute), true},
		{"@daily", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"0 9 * * *", time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC), true},
		{"30 8 * * *", time.Date(2026, 1, 1, 8, 30, 0, 0, time.UTC), true},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			timer, err := ParseTimer(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.want, timer.Next(from))
			assert.Equal(t, tc.recurring, timer.IsRecurring())
		})
	}
}

func TestParseTimer_Invalid(t *testing.T) {
	for _, expr := range []string{"", "   ", "-5m", "0s", "every day", "61 * * * *", "* * * * * *"} {
		_, err := ParseTimer(expr)
		require.Error(t, err, expr)
		assert.True(t, schema.IsCode(err, schema.ErrCodeExpression), expr)
	}
}
