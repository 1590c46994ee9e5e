package xtransport

import (
	"crypto/tls"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutsFromTotal(t *testing.T) {
	assert.Equal(t, TimeoutPolicy{
		Connect:     5 * time.Second,
		Read:        30 * time.Second,
		Write:       30 * time.Second,
		PoolAcquire: 10 * time.Second,
	}, TimeoutsFromTotal(30*time.Second))

	assert.Equal(t, TimeoutPolicy{
		Connect:     time.Second,
		Read:        6 * time.Second,
		Write:       6 * time.Second,
		PoolAcquire: 2 * time.Second,
	}, TimeoutsFromTotal(6*time.Second))

	// 纯函数：相同输入得到相同结果
	assert.Equal(t, TimeoutsFromTotal(30*time.Second), TimeoutsFromTotal(30*time.Second))
}

func TestTimeoutPolicy_Validate(t *testing.T) {
	valid := TimeoutsFromTotal(time.Second)
	require.NoError(t, valid.Validate())

	for _, mutate := range []func(*TimeoutPolicy){
		func(p *TimeoutPolicy) { p.Connect = 0 },
		func(p *TimeoutPolicy) { p.Read = -1 },
		func(p *TimeoutPolicy) { p.Write = 0 },
		func(p *TimeoutPolicy) { p.PoolAcquire = 0 },
	} {
		p := valid
		mutate(&p)
		assert.ErrorIs(t, p.Validate(), ErrInvalidTimeout)
	}
}

func TestPoolPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPoolPolicy().Validate())
	require.NoError(t, PoolPolicy{MaxConnections: 1}.Validate())

	for _, p := range []PoolPolicy{
		{MaxConnections: 0},
		{MaxConnections: 1, MaxIdleConnections: -1},
		{MaxConnections: 1, MaxIdleConnections: 2},
		{MaxConnections: 1, IdleExpiry: -time.Second},
	} {
		assert.ErrorIs(t, p.Validate(), ErrInvalidPoolPolicy, "%+v", p)
	}
}

func TestNewHTTPTransport(t *testing.T) {
	timeouts := TimeoutPolicy{Connect: time.Second, Read: 2 * time.Second, Write: 3 * time.Second, PoolAcquire: 4 * time.Second}

	ht := newHTTPTransport(DefaultPoolPolicy(), timeouts, nil)
	assert.Equal(t, 100, ht.MaxConnsPerHost)
	assert.Equal(t, 20, ht.MaxIdleConns)
	assert.Equal(t, 20, ht.MaxIdleConnsPerHost)
	assert.Equal(t, 30*time.Second, ht.IdleConnTimeout)
	assert.Equal(t, time.Second, ht.TLSHandshakeTimeout)
	assert.Equal(t, 2*time.Second, ht.ResponseHeaderTimeout)
	assert.False(t, ht.DisableKeepAlives)
	assert.False(t, ht.ForceAttemptHTTP2)
	assert.NotNil(t, ht.TLSNextProto, "http/2 disabled by empty TLSNextProto")
	assert.Empty(t, ht.TLSNextProto)

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	ht = newHTTPTransport(PoolPolicy{MaxConnections: 4, Multiplexed: true}, timeouts, tlsCfg)
	assert.True(t, ht.DisableKeepAlives)
	assert.True(t, ht.ForceAttemptHTTP2)
	assert.Nil(t, ht.TLSNextProto)
	assert.Same(t, tlsCfg, ht.TLSClientConfig)
}

// recordingConn 记录写截止时间
type recordingConn struct {
	net.Conn
	deadline time.Time
	written  []byte
}

func (c *recordingConn) SetWriteDeadline(t time.Time) error {
	c.deadline = t
	return nil
}

func (c *recordingConn) Write(b []byte) (int, error) {
	c.written = append(c.written, b...)
	return len(b), nil
}

func TestDeadlineConn_SetsWriteDeadline(t *testing.T) {
	rc := &recordingConn{}
	conn := &deadlineConn{Conn: rc, write: time.Minute}

	before := time.Now()
	n, err := conn.Write([]byte("GET / HTTP/1.1\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.Equal(t, "GET / HTTP/1.1\r\n", string(rc.written))
	assert.WithinDuration(t, before.Add(time.Minute), rc.deadline, time.Second)
}
