package kafka

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

func TestPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "t1" {
			return errors.New("expected the tournament as key")
		}

		value, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		env, err := DecodeEnvelope(value)
		if err != nil {
			return err
		}
		if env.EventID == "" || env.Type != domain.EventEntryCreated {
			return errors.New("unexpected envelope")
		}
		return nil
	})

	p := NewPublisher(producer, "changes", testLogger)
	require.NoError(t, p.Publish(Envelope{Type: domain.EventEntryCreated, TournamentID: "t1", UserID: "u1"}))
	require.NoError(t, p.Close())
}

func TestPublisher_PublishError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewPublisher(producer, "changes", testLogger)
	err := p.Publish(Envelope{Type: domain.EventPostCreated, UserID: "u1", PostID: "p1"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}
