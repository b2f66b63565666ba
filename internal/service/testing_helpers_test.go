package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/lifelog/internal/daykey"
	"github.com/lifelog/internal/db"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano()))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

var shanghai = time.FixedZone("CST", 8*60*60)

func shanghaiCalendar() daykey.Calendar {
	return daykey.NewCalendar(shanghai)
}

func at(day string, hour, minute int) time.Time {
	d := daykey.MustParse(day)
	y, m, dd := d.Date()
	return time.Date(y, m, dd, hour, minute, 0, 0, shanghai)
}
