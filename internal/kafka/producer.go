package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// 注文イベント用の非同期producer。
// 送信はinboxチャネル経由で、HTTPハンドラをブロックしない。
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}

	//shutdownとPublishの競合ガード。closed後のPublishはdrop
	mu     sync.Mutex
	closed bool
}

// topicはメッセージごとに指定する
func NewProducer(brokers []string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// ctxのcancelが唯一のshutdown経路。残りをflushしてからcloseChを閉じる。
func (p *Producer) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.closed = true
				close(p.inbox)
				p.mu.Unlock()

				for m := range p.inbox {
					p.write(m)
				}
				_ = p.w.Close()
				close(p.closeCh)
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		//イベントはベストエフォート。注文自体はコミット済みなので落とさない
		log.Printf("kafka: write failed: %v", err)
	}
}

func (p *Producer) Publish(topic string, key, value []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Printf("kafka: producer closed, dropping event")
		return
	}

	select {
	case p.inbox <- kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now()}:
	default:
		log.Printf("kafka: inbox full, dropping event")
	}
}

// goroutineの終了待ち。
func (p *Producer) WaitClosed() { <-p.closeCh }
