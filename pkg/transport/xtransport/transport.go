package xtransport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/singleflight"

	"github.com/omeyang/xrest/pkg/observability/xlog"
	"github.com/omeyang/xrest/pkg/observability/xmetrics"
	"github.com/omeyang/xrest/pkg/resilience/xbreaker"
	"github.com/omeyang/xrest/pkg/resilience/xretry"
	"github.com/omeyang/xrest/pkg/transport/xapierr"
	"github.com/omeyang/xrest/pkg/transport/xetag"
)

const (
	// maxResponseSize 最大响应体大小（10MB）。
	maxResponseSize = 10 * 1024 * 1024

	// HeaderRequestID 请求 ID 头，同一逻辑请求的所有重试共用一个值。
	HeaderRequestID = "X-Request-ID"
)

// 确保 *http.Client 实现 Doer 接口
var _ Doer = (*http.Client)(nil)

// Transport 弹性 HTTP 传输层
//
// 对调用方而言每次 Execute 只执行一次；内部完成熔断判定、条件缓存、
// 阶段超时、重试与退避。Transport 可以被多个 goroutine 并发使用。
type Transport struct {
	cfg           Config
	doer          Doer
	httpTransport *http.Transport // 使用自定义 Doer 时为 nil
	gate          xbreaker.Gate
	cache         *xetag.Cache  // 关闭条件缓存时为 nil
	redisClient   *redis.Client // 仅 redis 条件缓存存储时非 nil，Close 时关闭
	policy        xretry.Policy
	timeouts      TimeoutPolicy
	logger        *slog.Logger
	observer      xmetrics.Observer
	propagator    propagation.TextMapPropagator
	group         *singleflight.Group // 未开启合并时为 nil
	closed        atomic.Bool
}

// New 创建 Transport。配置错误在此处返回，可用 errors.Is(err, ErrInvalidConfig) 判断。
func New(cfg Config, opts ...Option) (*Transport, error) {
	c := cfg.Clone()
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	t := &Transport{
		cfg:        *c,
		policy:     c.Retry,
		timeouts:   c.Timeouts,
		logger:     o.Logger,
		observer:   o.Observer,
		propagator: o.Propagator,
	}
	if t.propagator == nil {
		t.propagator = otel.GetTextMapPropagator()
	}

	if o.Doer != nil {
		t.doer = o.Doer
	} else {
		t.httpTransport = newHTTPTransport(c.Pool, c.Timeouts, o.TLSConfig)
		t.doer = &http.Client{Transport: t.httpTransport}
	}

	if o.Gate != nil {
		t.gate = o.Gate
	} else {
		gate, err := xbreaker.NewGate(c.BaseURL, c.Breaker, t.logStateChange)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		t.gate = gate
	}

	switch {
	case o.ConditionalCache != nil:
		t.cache = o.ConditionalCache
	case c.ConditionalCache.Disabled:
	case c.ConditionalCache.Store == CacheStoreLRU:
		store, err := xetag.NewLRUStore(c.ConditionalCache.Capacity)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		t.cache, _ = xetag.New(store) //nolint:errcheck // store 非 nil
	case c.ConditionalCache.Store == CacheStoreRedis:
		t.redisClient = newRedisClient(c.ConditionalCache.Redis)
		store, err := xetag.NewRedisStore(t.redisClient,
			xetag.WithHashKey(c.ConditionalCache.Redis.HashKey),
			xetag.WithTTL(c.ConditionalCache.Redis.TTL),
		)
		if err != nil {
			_ = t.redisClient.Close() //nolint:errcheck // best-effort cleanup
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		t.cache, _ = xetag.New(store) //nolint:errcheck // store 非 nil
	default:
		t.cache = xetag.NewMemory()
	}

	if c.Deduplicate {
		t.group = &singleflight.Group{}
	}
	return t, nil
}

// =============================================================================
// 执行
// =============================================================================

// Execute 阻塞执行一次逻辑请求
//
// 成功时返回 2xx 响应，或 304 合成的 200 响应（NotModified 为 true）。
// 终止性失败返回 *xapierr.Error；熔断器拒绝时返回 KindCircuitOpen 且不发起网络请求。
// ctx 取消时返回 ctx 的错误，不计入熔断器。
func (t *Transport) Execute(ctx context.Context, req Request) (*Response, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if t.closed.Load() {
		return nil, ErrClosed
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if t.group != nil && t.shareable(req) {
		return t.executeShared(ctx, req)
	}
	return t.execute(ctx, req)
}

// Get 发送 GET 请求，使用条件缓存。
func (t *Transport) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return t.Execute(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post 发送 POST 请求，body 按 JSON 序列化。
func (t *Transport) Post(ctx context.Context, path string, body any) (*Response, error) {
	return t.Execute(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

// call 一次逻辑请求在各次尝试之间共享的数据
type call struct {
	method    string
	path      string
	target    string
	header    http.Header
	body      []byte
	requestID string
}

// execute 同步与异步执行共用的决策流程
func (t *Transport) execute(ctx context.Context, req Request) (resp *Response, err error) {
	method := strings.ToUpper(req.Method)
	ctx, span := xmetrics.Start(ctx, t.observer, xmetrics.SpanOptions{
		Component: MetricsComponent,
		Operation: MetricsOpExecute,
		Kind:      xmetrics.KindClient,
		Attrs: []xmetrics.Attr{
			xmetrics.String(MetricsAttrHTTPMethod, method),
			xmetrics.String(MetricsAttrHTTPPath, req.Path),
		},
	})
	attempts := 0
	defer func() {
		attrs := []xmetrics.Attr{xmetrics.Attempts(attempts)}
		if resp != nil {
			attrs = append(attrs,
				xmetrics.Int(MetricsAttrHTTPStatus, resp.StatusCode),
				xmetrics.Bool(MetricsAttrNotModified, resp.NotModified),
			)
		}
		if err != nil {
			attrs = append(attrs, xmetrics.String(MetricsAttrErrorKind, xapierr.KindOf(err).String()))
		}
		span.End(xmetrics.Result{Err: err, Attrs: attrs})
	}()

	permit, err := t.gate.Acquire()
	if err != nil {
		t.logger.WarnContext(ctx, "circuit breaker rejected request",
			xlog.Method(method),
			xlog.Path(req.Path),
			slog.String("state", t.gate.State().String()),
		)
		return nil, xapierr.NewCircuitOpen(t.gate.RecoveryTimeout(), err)
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		permit.Abandon()
		return nil, err
	}

	c := &call{
		method: method,
		path:   req.Path,
		target: t.buildURL(req.Path, req.Query),
		header: t.buildHeader(req.Header),
		body:   body,
	}
	c.requestID = c.header.Get(HeaderRequestID)

	cacheable := t.cache != nil && !req.NoConditionalCache && xetag.Cacheable(method)
	var key string
	if cacheable {
		key = xetag.Key(method, req.Path, req.Query)
		if _, cerr := t.cache.Apply(ctx, key, c.header); cerr != nil {
			t.logger.WarnContext(ctx, "conditional cache lookup failed", slog.String("key", key), xlog.Err(cerr))
		}
	}

	resp, err = xretry.Do(ctx, t.policy, func(ctx context.Context, attempt int) (*Response, error) {
		attempts = attempt + 1
		return t.attempt(ctx, attempt, c)
	})

	switch {
	case err == nil && resp != nil:
		permit.Success()
		resp.Attempts = attempts
		resp.RequestID = c.requestID
		if cacheable && !resp.NotModified {
			if cerr := t.cache.Remember(ctx, key, resp.Header); cerr != nil {
				t.logger.WarnContext(ctx, "conditional cache update failed", slog.String("key", key), xlog.Err(cerr))
			}
		}
		return resp, nil
	case ctx.Err() != nil:
		// 调用方取消：没有结果，不计入熔断器
		permit.Abandon()
		return nil, ctx.Err()
	case err != nil:
		permit.Failure()
		t.logger.WarnContext(ctx, "request failed",
			xlog.Method(method),
			xlog.Path(req.Path),
			xlog.RequestID(c.requestID),
			slog.Int("attempts", attempts),
			xlog.Err(err),
		)
		return nil, err
	default:
		permit.Failure()
		return nil, xapierr.NewUnknown("transport invariant violated: retry loop ended without a result", nil)
	}
}

// attempt 执行一次网络尝试，并把结果转换为重试决策
func (t *Transport) attempt(ctx context.Context, attempt int, c *call) (*Response, error) {
	actx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	// 连接池等待计时，只覆盖 PoolAcquire。
	// 开始解析或拨号即视为已分配到连接名额，之后由 Dialer.Timeout（Connect）约束；
	// 复用空闲连接时由 GotConn 停止。
	poolTimer := time.AfterFunc(t.timeouts.PoolAcquire, func() { cancel(ErrPoolTimeout) })
	defer poolTimer.Stop()
	stopPool := func() { poolTimer.Stop() }
	actx = httptrace.WithClientTrace(actx, &httptrace.ClientTrace{
		DNSStart:     func(httptrace.DNSStartInfo) { stopPool() },
		ConnectStart: func(string, string) { stopPool() },
		GotConn:      func(httptrace.GotConnInfo) { stopPool() },
	})

	var bodyReader io.Reader
	if c.body != nil {
		bodyReader = bytes.NewReader(c.body)
	}
	httpReq, err := http.NewRequestWithContext(actx, c.method, c.target, bodyReader)
	if err != nil {
		return nil, xretry.NewPermanentError(xapierr.NewUnknown("build request failed", err))
	}
	httpReq.Header = c.header.Clone()
	t.propagator.Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	httpResp, err := t.doer.Do(httpReq)
	poolTimer.Stop()
	if err != nil {
		return nil, t.failAttempt(ctx, actx, attempt, c, err)
	}
	defer func() { _ = httpResp.Body.Close() }() //nolint:errcheck // Close 错误无法传播

	readTimer := time.AfterFunc(t.timeouts.Read, func() { cancel(ErrReadTimeout) })
	respBody, err := readBody(httpResp.Body)
	readTimer.Stop()
	if err != nil {
		if errors.Is(err, ErrResponseTooLarge) {
			e := xapierr.NewUnknown("response too large", err)
			e.StatusCode, e.RequestID = httpResp.StatusCode, c.requestID
			return nil, xretry.NewPermanentError(e)
		}
		return nil, t.failAttempt(ctx, actx, attempt, c, err)
	}

	status := httpResp.StatusCode
	t.logger.DebugContext(ctx, "http attempt",
		xlog.Method(c.method),
		xlog.Path(c.path),
		xlog.Attempt(attempt+1),
		xlog.StatusCode(status),
		xlog.Duration(time.Since(start)),
	)

	switch {
	case status == http.StatusNotModified:
		return &Response{
			StatusCode:  http.StatusOK,
			Header:      httpResp.Header,
			Body:        []byte(xetag.NotModifiedBody),
			NotModified: true,
		}, nil
	case status >= 200 && status < 300:
		return &Response{StatusCode: status, Header: httpResp.Header, Body: respBody}, nil
	}

	apiErr := xapierr.Classify(status, httpResp.Header, respBody)
	if apiErr.RequestID == "" {
		apiErr.RequestID = c.requestID
	}
	d := t.policy.DecideStatus(attempt, status, httpResp.Header)
	if !d.Retry {
		return nil, xretry.NewPermanentError(apiErr)
	}
	t.logger.WarnContext(ctx, "retrying request",
		xlog.Method(c.method),
		xlog.Path(c.path),
		xlog.Attempt(attempt+1),
		xlog.StatusCode(status),
		slog.Duration("wait", d.Wait),
	)
	return nil, xretry.NewTemporaryErrorAfter(apiErr, d.Wait)
}

// failAttempt 处理网络层失败：调用方取消、超时或网络错误
func (t *Transport) failAttempt(ctx, actx context.Context, attempt int, c *call, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return xretry.NewPermanentError(ctxErr)
	}

	var apiErr *xapierr.Error
	if cause := context.Cause(actx); errors.Is(cause, ErrPoolTimeout) || errors.Is(cause, ErrReadTimeout) {
		apiErr = xapierr.NewTimeout(cause)
	} else if isTimeout(err) {
		apiErr = xapierr.NewTimeout(err)
	} else {
		apiErr = xapierr.NewNetwork(err)
	}
	apiErr.RequestID = c.requestID

	d := t.policy.DecideError(attempt, apiErr)
	if !d.Retry {
		return xretry.NewPermanentError(apiErr)
	}
	t.logger.WarnContext(ctx, "retrying request",
		xlog.Method(c.method),
		xlog.Path(c.path),
		xlog.Attempt(attempt+1),
		slog.String("kind", apiErr.Kind.String()),
		slog.Duration("wait", d.Wait),
		xlog.Err(err),
	)
	return xretry.NewTemporaryErrorAfter(apiErr, d.Wait)
}

// isTimeout 判断网络错误是否为超时
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// readBody 读取响应体，多读取 1 字节用于检测超限
func readBody(r io.Reader) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: maxResponseSize + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseSize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrResponseTooLarge, maxResponseSize)
	}
	return data, nil
}

// =============================================================================
// 请求合并
// =============================================================================

// shareable 只合并没有请求体和自定义头的 GET 请求
func (t *Transport) shareable(req Request) bool {
	return xetag.Cacheable(req.Method) && req.Body == nil && len(req.Header) == 0
}

// executeShared 合并并发的相同请求
//
// 共享的执行不随任一调用方取消，由阶段超时和重试预算约束；
// 每个调用方仍可通过自己的 ctx 提前返回。
func (t *Transport) executeShared(ctx context.Context, req Request) (*Response, error) {
	key := xetag.Key(req.Method, req.Path, req.Query)
	if req.NoConditionalCache {
		key = "nocache|" + key
	}
	ch := t.group.DoChan(key, func() (any, error) {
		return t.execute(context.WithoutCancel(ctx), req)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		resp, _ := res.Val.(*Response) //nolint:errcheck // execute 只返回 *Response
		if res.Shared {
			return resp.clone(), nil
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// =============================================================================
// 请求构建
// =============================================================================

// buildURL 拼接 BaseURL、路径与查询参数
func (t *Transport) buildURL(path string, query url.Values) string {
	u := t.cfg.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// buildHeader 生成默认请求头，extra 覆盖默认值。
// 请求 ID 在此生成一次，同一逻辑请求的所有重试共用。
func (t *Transport) buildHeader(extra http.Header) http.Header {
	h := make(http.Header, 6+len(extra))
	h.Set("Authorization", "Bearer "+t.cfg.Token)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("User-Agent", t.cfg.UserAgent)
	for k, vs := range extra {
		h[http.CanonicalHeaderKey(k)] = slices.Clone(vs)
	}
	if h.Get(HeaderRequestID) == "" {
		h.Set(HeaderRequestID, uuid.NewString())
	}
	return h
}

// =============================================================================
// 维护与诊断
// =============================================================================

// CircuitState 返回熔断器当前状态
func (t *Transport) CircuitState() xbreaker.State {
	return t.gate.State()
}

// IsCircuitOpen 熔断器是否处于打开状态
func (t *Transport) IsCircuitOpen() bool {
	return t.gate.State() == xbreaker.StateOpen
}

// BreakerSnapshot 返回内置熔断器的状态快照；使用自定义 Gate 时 ok 为 false。
func (t *Transport) BreakerSnapshot() (xbreaker.Snapshot, bool) {
	b, ok := t.gate.(*xbreaker.Breaker)
	if !ok {
		return xbreaker.Snapshot{}, false
	}
	return b.Snapshot(), true
}

// ResetCircuitBreaker 手动将熔断器重置为关闭状态
func (t *Transport) ResetCircuitBreaker() {
	t.gate.Reset()
	t.logger.Info("circuit breaker reset")
}

// ClearConditionalCache 清空条件缓存
func (t *Transport) ClearConditionalCache(ctx context.Context) error {
	if t.cache == nil {
		return nil
	}
	return t.cache.Clear(ctx)
}

// Config 返回配置副本
func (t *Transport) Config() Config {
	return *t.cfg.Clone()
}

// Close 关闭 Transport 并释放空闲连接，重复调用是安全的。
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.httpTransport != nil {
		t.httpTransport.CloseIdleConnections()
	}
	if t.redisClient != nil {
		if err := t.redisClient.Close(); err != nil {
			return fmt.Errorf("xtransport: close redis client: %w", err)
		}
	}
	return nil
}

// logStateChange 记录熔断器状态变化
func (t *Transport) logStateChange(name string, from, to xbreaker.State) {
	level := slog.LevelInfo
	if to == xbreaker.StateOpen {
		level = slog.LevelWarn
	}
	t.logger.Log(context.Background(), level, "circuit breaker state changed",
		slog.String("breaker", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}
