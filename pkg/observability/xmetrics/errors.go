package xmetrics

import "errors"

var (
	// ErrNilOption NewOTelObserver 收到 nil Option
	ErrNilOption = errors.New("xmetrics: nil option")

	// ErrCreateInstrument 创建 xrest.request.* 指标失败
	ErrCreateInstrument = errors.New("xmetrics: create instrument failed")
)
