package publisher

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/radieske/betting-house-core/internal/shared/kafka"
	ev "github.com/radieske/betting-house-core/pkg/contracts/events"
)

// Kafka publica os eventos de domínio do núcleo. Publicação é
// fire-and-forget: falha de broker nunca bloqueia uma operação de ledger,
// o chamador só loga o erro.
type Kafka struct {
	BetPlaced  *kafkago.Writer
	BetSettled *kafkago.Writer
	TxApproved *kafkago.Writer
}

func (k *Kafka) PublishBetPlaced(ctx context.Context, e ev.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return kafka.WriteJSON(ctx, k.BetPlaced, e.BetID, b)
}

func (k *Kafka) PublishBetSettled(ctx context.Context, e ev.BetSettled) error {
	b, _ := json.Marshal(e)
	return kafka.WriteJSON(ctx, k.BetSettled, e.BetID, b)
}

func (k *Kafka) PublishTransactionApproved(ctx context.Context, e ev.TransactionApproved) error {
	b, _ := json.Marshal(e)
	return kafka.WriteJSON(ctx, k.TxApproved, e.TransactionID, b)
}

// Close fecha os writers na ordem em que foram abertos
func (k *Kafka) Close() {
	for _, w := range []*kafkago.Writer{k.BetPlaced, k.BetSettled, k.TxApproved} {
		if w != nil {
			_ = w.Close()
		}
	}
}
