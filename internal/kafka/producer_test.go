package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// shutdown後のPublishはpanicせずdropになる。
// drain中のHTTPハンドラがコミット後にイベントを送るケース。
func TestProducer_PublishAfterShutdown(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.WaitClosed()

	assert.NotPanics(t, func() {
		p.Publish("order.created", []byte("1"), []byte("{}"))
	})
}

func TestProducer_PublishDoesNotBlockWhenFull(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, 1)
	//Startしないのでinboxは消費されない

	done := make(chan struct{})
	go func() {
		p.Publish("order.created", []byte("1"), []byte("{}"))
		p.Publish("order.created", []byte("2"), []byte("{}"))
		p.Publish("order.created", []byte("3"), []byte("{}"))
		close(done)
	}()

	//3回のPublishがブロックせず戻ってくること
	<-done
	assert.Len(t, p.inbox, 1)
}
