package xtransport

import "net/http"

//go:generate mockgen -source=doer.go -destination=mock_doer_test.go -package=xtransport

// Doer 执行单次 HTTP 请求，*http.Client 即满足此接口。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}
