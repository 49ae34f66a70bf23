package lexer

import (
	"fmt"
	"time"
)

func buildTime(year, month, day, hour, minute, second, micro int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 60 {
		return time.Time{}, fmt.Errorf("timestamp field out of range")
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, micro*1000, time.UTC), nil
}
