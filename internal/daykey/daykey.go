// Package daykey 提供统一的“自然日”标识。
//
// 所有按天存储的记录（打卡、连胜、里程碑）都以 DayKey 作为唯一身份，
// DayKey 总是基于一个固定的参考时区换算得到，不携带任何时间部分。
package daykey

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout 是 DayKey 的文本格式。
const Layout = "2006-01-02"

// ErrInvalidInput 在时间点或日期文本不合法时返回。
var ErrInvalidInput = errors.New("invalid input")

// DayKey 表示一个不含时间部分的日历日，可直接用 == 比较。
// 零值表示未设置。
type DayKey struct {
	year  int
	month time.Month
	day   int
}

// New 根据年月日构造 DayKey，越界的月/日会像 time.Date 一样被归一化。
func New(year int, month time.Month, day int) DayKey {
	return FromDate(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromDate 取 t 在其自身时区下的墙上日期。
func FromDate(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{year: y, month: m, day: d}
}

// FromInstant 将任意时间点换算到参考时区后取日期。
// 同一时间点 + 同一时区总是得到同一个 DayKey。
func FromInstant(instant time.Time, loc *time.Location) (DayKey, error) {
	if instant.IsZero() {
		return DayKey{}, fmt.Errorf("%w: zero instant", ErrInvalidInput)
	}
	if loc == nil {
		return DayKey{}, fmt.Errorf("%w: nil reference timezone", ErrInvalidInput)
	}
	return FromDate(instant.In(loc)), nil
}

// Parse 解析 2006-01-02 格式的日期文本。
func Parse(value string) (DayKey, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return DayKey{}, fmt.Errorf("%w: empty day key", ErrInvalidInput)
	}
	t, err := time.Parse(Layout, trimmed)
	if err != nil {
		return DayKey{}, fmt.Errorf("%w: %q is not a day key", ErrInvalidInput, value)
	}
	return FromDate(t), nil
}

// MustParse 与 Parse 相同，但在出错时 panic，仅用于常量和测试数据。
func MustParse(value string) DayKey {
	k, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return k
}

// IsZero 判断是否为零值。
func (k DayKey) IsZero() bool {
	return k == DayKey{}
}

func (k DayKey) civil() time.Time {
	return time.Date(k.year, k.month, k.day, 0, 0, 0, 0, time.UTC)
}

// Date 返回年月日。
func (k DayKey) Date() (int, time.Month, int) {
	return k.year, k.month, k.day
}

// String 返回 2006-01-02 格式的文本，零值返回空串。
func (k DayKey) String() string {
	if k.IsZero() {
		return ""
	}
	return k.civil().Format(Layout)
}

// AddDays 返回向后（n<0 时向前）偏移 n 天的 DayKey。
func (k DayKey) AddDays(n int) DayKey {
	return FromDate(k.civil().AddDate(0, 0, n))
}

// Compare 返回 -1/0/1。
func (k DayKey) Compare(other DayKey) int {
	return k.civil().Compare(other.civil())
}

// Before 判断 k 是否早于 other。
func (k DayKey) Before(other DayKey) bool {
	return k.Compare(other) < 0
}

// After 判断 k 是否晚于 other。
func (k DayKey) After(other DayKey) bool {
	return k.Compare(other) > 0
}

// StartOfDay 返回该日在 loc 下的零点，loc 为空时使用 UTC。
func (k DayKey) StartOfDay(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(k.year, k.month, k.day, 0, 0, 0, 0, loc)
}

// EndOfDay 返回次日零点，作为区间查询的开区间上界。
func (k DayKey) EndOfDay(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(k.year, k.month, k.day+1, 0, 0, 0, 0, loc)
}

// Range 返回该日的 [零点, 次日零点) 区间。
func (k DayKey) Range(loc *time.Location) Range {
	return Range{Start: k.StartOfDay(loc), End: k.EndOfDay(loc)}
}

// Between 返回从 from 到 to 相差的天数，to 早于 from 时为负数。
func Between(from, to DayKey) int {
	return int(to.civil().Sub(from.civil()) / (24 * time.Hour))
}

// Span 返回 [from, to] 闭区间内按升序排列的所有 DayKey。
func Span(from, to DayKey) []DayKey {
	if to.Before(from) {
		return nil
	}
	days := make([]DayKey, 0, Between(from, to)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// MarshalText 实现 encoding.TextMarshaler，JSON/YAML 中以日期字符串出现。
func (k DayKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (k *DayKey) UnmarshalText(data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		*k = DayKey{}
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value 实现 driver.Valuer，以日期文本落库。
func (k DayKey) Value() (driver.Value, error) {
	if k.IsZero() {
		return nil, nil
	}
	return k.String(), nil
}

// Scan 实现 sql.Scanner。
func (k *DayKey) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*k = DayKey{}
		return nil
	case string:
		return k.UnmarshalText([]byte(v))
	case []byte:
		return k.UnmarshalText(v)
	case time.Time:
		*k = FromDate(v)
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T into DayKey", ErrInvalidInput, src)
	}
}

// GormDataType 让 gorm 以字符串列存储 DayKey。
func (DayKey) GormDataType() string {
	return "string"
}
