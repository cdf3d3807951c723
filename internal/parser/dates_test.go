package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

func TestParseFlexibleDatePrecisions(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2021", time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2021-07", time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"2021-07-15", time.Date(2021, 7, 15, 0, 0, 0, 0, time.UTC)},
		// 分隔符变体
		{"2021/07", time.Date(2021, 7, 1, 0, 0, 0, 0, time.UTC)},
		{"2021.07.15", time.Date(2021, 7, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, c := range cases {
		got, ok := ParseFlexibleDate(c.in, testNow)
		require.True(t, ok, "应能解析 %q", c.in)
		assert.Equal(t, c.want, got, "输入 %q", c.in)
	}
}

func TestParseFlexibleDateSentinels(t *testing.T) {
	for _, s := range []string{"present", "Present", "CURRENT", "now", "至今", "目前"} {
		got, ok := ParseFlexibleDate(s, testNow)
		require.True(t, ok, "哨兵词 %q", s)
		assert.Equal(t, testNow, got)
	}
}

func TestParseFlexibleDateInvalid(t *testing.T) {
	for _, s := range []string{"", "  ", "去年", "13/2021", "2021-13", "next year"} {
		_, ok := ParseFlexibleDate(s, testNow)
		assert.False(t, ok, "不应解析 %q", s)
	}
}

func TestMonthsBetween(t *testing.T) {
	start := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, MonthsBetween(start, &end, false, testNow))

	// 在职且无结束日期：用now补齐
	assert.Equal(t, 75, MonthsBetween(start, nil, true, testNow))

	// 非在职且无结束日期：零时长
	assert.Equal(t, 0, MonthsBetween(start, nil, false, testNow))
}

func TestMonthsBetweenClamps(t *testing.T) {
	// 结束早于开始 → 0，绝不为负
	start := time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, MonthsBetween(start, &end, false, testNow))

	// 超长区间夹取到600个月
	ancient := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, MaxMonths, MonthsBetween(ancient, &testNow, false, testNow))

	// 开始日期缺失 → 0
	assert.Equal(t, 0, MonthsBetween(time.Time{}, &end, false, testNow))
}
