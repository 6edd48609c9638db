package week

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestNumber(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want int
	}{
		{"year starts on monday", date(2024, time.January, 1), 1},
		{"midweek start pushes second week early", date(2025, time.January, 5), 2},
		{"leap year last day", date(2024, time.December, 31), 53},
		{"time of day is ignored", time.Date(2024, time.January, 1, 23, 59, 0, 0, time.Local), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Number(tc.in))
		})
	}
}

func TestRange(t *testing.T) {
	// 2024-01-01 正好是周一
	mon, fri := Range(2024, 1)
	assert.Equal(t, date(2024, time.January, 1), mon)
	assert.Equal(t, date(2024, time.January, 5), fri)

	// 2025 年首周从周三起算，第二周的周一是 1 月 6 日
	mon, fri = Range(2025, 2)
	assert.Equal(t, date(2025, time.January, 6), mon)
	assert.Equal(t, date(2025, time.January, 10), fri)
	assert.Equal(t, time.Monday, mon.Weekday())
	assert.Equal(t, time.Friday, fri.Weekday())

	// Number 和 Range 同口径
	assert.Equal(t, 2, Number(mon))
	assert.Equal(t, 2, Number(fri))
}
