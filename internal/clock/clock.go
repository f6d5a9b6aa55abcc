// Package clock 提供可替换的时钟，调度器的所有定时都经由它完成。
package clock

import "time"

// Clock 时钟接口
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer 一次性定时器
type Timer interface {
	// Stop 取消定时器，若定时器已触发或已取消则返回 false
	Stop() bool
}

type realClock struct{}

// Real 返回基于 time 包的时钟
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
