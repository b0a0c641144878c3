package loyalty

import "time"

// SetNow 測試用：替換時間來源，返回還原函數
func SetNow(f func() time.Time) (restore func()) {
	prev := now
	now = f
	return func() { now = prev }
}
