package daykey

import (
	"fmt"
	"time"
)

// Range 是半开时间区间 [Start, End)。
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains 判断 t 是否落在区间内。
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Widen 向两侧各扩展 d，d<=0 时原样返回。
func (r Range) Widen(d time.Duration) Range {
	if d <= 0 {
		return r
	}
	return Range{Start: r.Start.Add(-d), End: r.End.Add(d)}
}

// Calendar 绑定参考时区，集中负责“时间点 -> 日期”和“日期 -> 区间”的换算。
type Calendar struct {
	loc *time.Location
}

// NewCalendar 使用给定时区构造 Calendar，loc 为空时回退到 UTC。
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar 按 IANA 名称加载时区。
func LoadCalendar(name string) (Calendar, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("%w: load timezone %q: %v", ErrInvalidInput, name, err)
	}
	return NewCalendar(loc), nil
}

// Location 返回参考时区。
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// DayKey 将时间点换算为参考时区下的 DayKey。
func (c Calendar) DayKey(instant time.Time) (DayKey, error) {
	return FromInstant(instant, c.Location())
}

// Range 返回 DayKey 在参考时区下的区间。
func (c Calendar) Range(k DayKey) Range {
	return k.Range(c.Location())
}

// SpanRange 返回 [from 零点, to 次日零点) 区间，用于一次性批量查询多天数据。
func (c Calendar) SpanRange(from, to DayKey) Range {
	return Range{Start: from.StartOfDay(c.Location()), End: to.EndOfDay(c.Location())}
}
