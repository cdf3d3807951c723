package parser

import (
	"strings"
	"time"
)

// 简历中的日期格式固定为三种精度加少量"至今"类哨兵词；
// 解析失败通过第二返回值表达，由调用方决定跳过该记录还是整体放弃。

// 表示"仍在进行中"的哨兵词（大小写不敏感）
var presentSentinels = map[string]bool{
	"present": true,
	"current": true,
	"now":     true,
	"至今":      true,
	"目前":      true,
}

const (
	layoutYear      = "2006"
	layoutYearMonth = "2006-01"
	layoutFullDate  = "2006-01-02"

	// MaxMonths 单段时长上限（50年）
	MaxMonths = 600
)

// ParseFlexibleDate 解析 YYYY / YYYY-MM / YYYY-MM-DD 三种精度的日期。
// 哨兵词（present/current/now/至今/目前）解析为now；部分精度的日期补齐到首月/首日。
// 无法解析时返回 (零值, false)，调用方记录异常后跳过，绝不中断整条记录。
func ParseFlexibleDate(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if presentSentinels[strings.ToLower(s)] {
		return now, true
	}

	// 常见的分隔符变体统一为连字符
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ".", "-")

	for _, layout := range []string{layoutFullDate, layoutYearMonth, layoutYear} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsPresentSentinel 判断字符串是否为"至今"类哨兵词
func IsPresentSentinel(s string) bool {
	return presentSentinels[strings.ToLower(strings.TrimSpace(s))]
}

// MonthsBetween 计算两个日期之间的月数。
// end缺失且isCurrent时用now补齐；结果夹取到 [0, 600]；end早于start返回0。
func MonthsBetween(start time.Time, end *time.Time, isCurrent bool, now time.Time) int {
	if start.IsZero() {
		return 0
	}

	effectiveEnd := now
	if end != nil && !end.IsZero() {
		effectiveEnd = *end
	} else if !isCurrent {
		// 既没有结束日期也不是在职状态，按零时长处理
		return 0
	}

	if effectiveEnd.Before(start) {
		return 0
	}

	months := (effectiveEnd.Year()-start.Year())*12 + int(effectiveEnd.Month()) - int(start.Month())
	if months < 0 {
		return 0
	}
	if months > MaxMonths {
		return MaxMonths
	}
	return months
}
