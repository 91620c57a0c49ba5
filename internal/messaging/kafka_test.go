package messaging

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go-markboard/internal/model"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityTopic(t *testing.T) {
	assert.Equal(t, "markboard_activity", ActivityTopic("markboard"))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	publisher := NewKafkaPublisherWithProducer(producer, "markboard")
	assert.Equal(t, "kafka", publisher.Name())

	entry := &model.ActivityLog{ID: 1, UserID: 5, Action: model.ActionTeamCreated, ResourceType: model.ResourceTeam,
		Details: "Created team: alpha", CreatedAt: time.Now()}

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		got, err := DecodeActivity(val)
		if err != nil {
			return err
		}
		if got.Action != model.ActionTeamCreated || got.UserID != 5 {
			return fmt.Errorf("unexpected event %+v", got)
		}
		return nil
	})
	require.NoError(t, publisher.Publish(entry))

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	err := publisher.Publish(entry)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sarama.ErrOutOfBrokers))

	require.NoError(t, publisher.Close())
}

type fakeSession struct {
	sarama.ConsumerGroupSession
	marked []int64
}

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage {
	return c.messages
}

func TestFeedHandler_ConsumeClaim(t *testing.T) {
	var received []*model.ActivityLog
	handler := &feedHandler{handle: func(e *model.ActivityLog) { received = append(received, e) }}

	good, err := EncodeActivity(&model.ActivityLog{ID: 9, UserID: 2, Action: model.ActionFileDeleted, ResourceType: model.ResourceFile})
	require.NoError(t, err)

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 2)}
	claim.messages <- &sarama.ConsumerMessage{Topic: "markboard_activity", Offset: 10, Value: []byte{0xff, 0xff}}
	claim.messages <- &sarama.ConsumerMessage{Topic: "markboard_activity", Offset: 11, Value: good}
	close(claim.messages)

	session := &fakeSession{}
	require.NoError(t, handler.ConsumeClaim(session, claim))

	// 无法解析的消息也要标记，避免反复消费
	assert.Equal(t, []int64{10, 11}, session.marked)
	require.Len(t, received, 1)
	assert.Equal(t, uint(9), received[0].ID)
	assert.Equal(t, model.ActionFileDeleted, received[0].Action)
}
