package xmetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInternal, "Internal"},
		{KindClient, "Client"},
		{Kind(42), "Kind(42)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestAttrConstructors(t *testing.T) {
	assert.Equal(t, Attr{Key: "s", Value: "v"}, String("s", "v"))
	assert.Equal(t, Attr{Key: "b", Value: true}, Bool("b", true))
	assert.Equal(t, Attr{Key: "i", Value: 3}, Int("i", 3))
	assert.Equal(t, Attr{Key: "i64", Value: int64(4)}, Int64("i64", 4))
	assert.Equal(t, Attr{Key: "d", Value: time.Second}, Duration("d", time.Second))
	assert.Equal(t, Attr{Key: AttrAttempts, Value: 2}, Attempts(2))
}

func TestNoopObserver_Start(t *testing.T) {
	ctx := context.WithValue(context.Background(), struct{}{}, "v")
	got, span := NoopObserver{}.Start(ctx, SpanOptions{Component: "c"})
	assert.Equal(t, ctx, got)
	require.NotNil(t, span)
	span.End(Result{Err: errors.New("ignored")})

	//nolint:staticcheck // 验证 nil context 兜底
	got, _ = NoopObserver{}.Start(nil, SpanOptions{})
	assert.NotNil(t, got)
}

type nilObserver struct{}

func (nilObserver) Start(context.Context, SpanOptions) (context.Context, Span) {
	return nil, nil
}

func TestStart_Normalizes(t *testing.T) {
	t.Run("nil observer", func(t *testing.T) {
		ctx, span := Start(context.Background(), nil, SpanOptions{})
		assert.NotNil(t, ctx)
		assert.IsType(t, NoopSpan{}, span)
	})

	t.Run("nil context", func(t *testing.T) {
		//nolint:staticcheck // 验证 nil context 兜底
		ctx, span := Start(nil, NoopObserver{}, SpanOptions{})
		assert.NotNil(t, ctx)
		assert.NotNil(t, span)
	})

	t.Run("observer returns nil values", func(t *testing.T) {
		base := context.Background()
		ctx, span := Start(base, nilObserver{}, SpanOptions{})
		assert.Equal(t, base, ctx)
		assert.IsType(t, NoopSpan{}, span)
	})
}
