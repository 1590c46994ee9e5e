package xtransport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/omeyang/xrest/pkg/observability/xlog"
	"github.com/omeyang/xrest/pkg/observability/xmetrics"
	"github.com/omeyang/xrest/pkg/resilience/xbreaker"
)

const (
	// DefaultHealthTimeout 健康检查默认超时
	DefaultHealthTimeout = 5 * time.Second

	// healthPath 健康检查路径（相对 BaseURL）
	healthPath = "health"
)

// HealthCheck 探测上游是否可达
//
// 熔断器打开时直接返回 false。2xx 与 404 视为可达（404 表示上游未实现健康检查路径）。
// 不重试，也不影响熔断器状态。timeout <= 0 时使用 DefaultHealthTimeout。
func (t *Transport) HealthCheck(ctx context.Context, timeout time.Duration) (healthy bool) {
	if ctx == nil || t.closed.Load() {
		return false
	}
	if t.gate.State() == xbreaker.StateOpen {
		t.logger.DebugContext(ctx, "health check skipped: circuit open")
		return false
	}
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := xmetrics.Start(ctx, t.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpHealthCheck,
		Kind:      xmetrics.KindClient,
	})
	var (
		status int
		err    error
	)
	defer func() {
		attrs := []xmetrics.Attr{xmetrics.Bool("healthy", healthy)}
		if status != 0 {
			attrs = append(attrs, xmetrics.Int(MetricsAttrHTTPStatus, status))
		}
		span.End(xmetrics.Result{Err: err, Attrs: attrs})
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.buildURL(healthPath, nil), nil)
	if err != nil {
		return false
	}
	req.Header = t.buildHeader(nil)

	resp, err := t.doer.Do(req)
	if err != nil {
		t.logger.WarnContext(ctx, "health check failed", xlog.Err(err))
		return false
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Close 错误无法传播
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize)) //nolint:errcheck // 仅为复用连接

	status = resp.StatusCode
	return (status >= 200 && status < 300) || status == http.StatusNotFound
}
