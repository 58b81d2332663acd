package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }

type pong struct{}

func TestPublishSubscribe(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var a, b []int
	unsubA := Subscribe(func(_ context.Context, p ping) { a = append(a, p.N) })
	unsubB := Subscribe(func(_ context.Context, p ping) { b = append(b, p.N) })
	Subscribe(func(context.Context, pong) { t.Fatal("pong handler must not see ping") })

	Publish(context.Background(), ping{N: 1})
	unsubA()
	unsubA()
	Publish(context.Background(), ping{N: 2})
	unsubB()
	Publish(context.Background(), ping{N: 3})

	require.Equal(t, []int{1}, a)
	require.Equal(t, []int{1, 2}, b)
}

func TestPublishWithoutBus(t *testing.T) {
	Use(nil)
	unsub := Subscribe(func(context.Context, ping) { t.Fatal("unexpected event") })
	Publish(context.Background(), ping{N: 1})
	unsub()
}
