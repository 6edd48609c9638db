// Package week 周次计算。沿用既有数据的记周口径（以 1 月 1 日所在周起算），
// 不是严格的 ISO 8601 周，换算法会让历史周报错位。
package week

import (
	"math"
	"time"
)

// Number 返回 t 所在的周次（1 起）
func Number(t time.Time) int {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	first := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	past := d.Sub(first).Hours() / 24
	return int(math.Ceil((past + float64(first.Weekday()) + 1) / 7))
}

// Range 返回某年某周的周一和周五
func Range(year, weekNum int) (monday, friday time.Time) {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	offset := int(first.Weekday()) - 1 // 对齐到周一
	monday = first.AddDate(0, 0, (weekNum-1)*7-offset)
	friday = monday.AddDate(0, 0, 4)
	return monday, friday
}
