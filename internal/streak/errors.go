package streak

import (
	"errors"
	"fmt"

	"github.com/lifelog/internal/daykey"
)

var (
	// ErrInvalidInput 表示日期或时间点不合法，与 daykey 包共享同一个哨兵值。
	ErrInvalidInput = daykey.ErrInvalidInput
	// ErrDataUnavailable 表示打卡/运动日志查询失败，当天状态未知而不是无效。
	ErrDataUnavailable = errors.New("activity data unavailable")
	// ErrCorruptRecord 表示已落库的每日记录未通过一致性校验。
	ErrCorruptRecord = errors.New("corrupt daily streak record")
	// ErrVersionConflict 表示同一天的记录在读取后被其他请求改写。
	ErrVersionConflict = errors.New("daily streak record version conflict")
	// ErrInvalidMilestones 表示里程碑配置表不合法。
	ErrInvalidMilestones = errors.New("invalid milestone table")
	// ErrFutureDay 表示日期晚于参考时区的今天，同时满足 errors.Is(err, ErrInvalidInput)。
	ErrFutureDay = fmt.Errorf("%w: day is in the future", ErrInvalidInput)
)

func unavailable(op string, day daykey.DayKey, err error) error {
	if errors.Is(err, ErrDataUnavailable) {
		return fmt.Errorf("%s %s: %w", op, day, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrDataUnavailable, op, day, err)
}
