package messaging

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go-markboard/internal/model"
	"go-markboard/pkg/config"
	"go-markboard/pkg/logger"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const activityTopicSuffix = "activity"

// ActivityTopic 构建Kafka主题名称
func ActivityTopic(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, activityTopicSuffix)
}

func newSaramaConfig() *sarama.Config {
	kConfig := sarama.NewConfig()
	kConfig.Producer.RequiredAcks = sarama.WaitForAll
	kConfig.Producer.Return.Successes = true
	kConfig.Producer.Retry.Max = 3
	kConfig.Consumer.Return.Errors = true
	kConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	kConfig.Version = sarama.V2_8_0_0
	return kConfig
}

// KafkaPublisher 把操作记录写入 <prefix>_activity 主题
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(cfg config.KafkaConfig) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig())
	if err != nil {
		logger.L.Error("Failed to start Kafka producer", zap.Error(err))
		return nil, fmt.Errorf("failed to start Kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, cfg.TopicPrefix), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: ActivityTopic(topicPrefix)}
}

func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// Publish 同步发送，按用户分区以保证同一用户的记录有序
func (p *KafkaPublisher) Publish(entry *model.ActivityLog) error {
	data, err := EncodeActivity(entry)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(entry.UserID), 10)),
		Value: sarama.ByteEncoder(data),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send activity to Kafka: %w", err)
	}
	logger.L.Debug("Activity sent to Kafka",
		zap.Uint("activityID", entry.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// KafkaFeed 消费操作记录主题，把每条记录交给 handler。
// 多实例部署时管理端推送由它驱动，可以看到所有实例产生的记录。
type KafkaFeed struct {
	consumer sarama.ConsumerGroup
	topic    string
	handler  func(*model.ActivityLog)

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

func NewKafkaFeed(cfg config.KafkaConfig, handler func(*model.ActivityLog)) (*KafkaFeed, error) {
	consumer, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, newSaramaConfig())
	if err != nil {
		logger.L.Error("Failed to start Kafka consumer group", zap.Error(err))
		return nil, fmt.Errorf("failed to start Kafka consumer group: %w", err)
	}
	return NewKafkaFeedWithConsumer(consumer, cfg.TopicPrefix, handler), nil
}

func NewKafkaFeedWithConsumer(consumer sarama.ConsumerGroup, topicPrefix string, handler func(*model.ActivityLog)) *KafkaFeed {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaFeed{
		consumer:   consumer,
		topic:      ActivityTopic(topicPrefix),
		handler:    handler,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

func (f *KafkaFeed) Start() {
	f.wg.Add(2)
	go f.consume()
	go f.logErrors()
}

func (f *KafkaFeed) Close() error {
	f.cancelFunc()
	err := f.consumer.Close()
	f.wg.Wait()
	return err
}

func (f *KafkaFeed) consume() {
	defer f.wg.Done()
	handler := &feedHandler{handle: f.handler}
	for {
		// Consume 在重新平衡后返回，需要循环调用
		if err := f.consumer.Consume(f.ctx, []string{f.topic}, handler); err != nil {
			if f.ctx.Err() != nil {
				return
			}
			logger.L.Error("Kafka consumer error", zap.Error(err))
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
		if f.ctx.Err() != nil {
			logger.L.Info("Stopping Kafka activity feed")
			return
		}
	}
}

func (f *KafkaFeed) logErrors() {
	defer f.wg.Done()
	for {
		select {
		case <-f.ctx.Done():
			return
		case err, ok := <-f.consumer.Errors():
			if !ok {
				return
			}
			logger.L.Warn("Kafka consumer group error", zap.Error(err))
		}
	}
}

// feedHandler 实现 sarama.ConsumerGroupHandler
type feedHandler struct {
	handle func(*model.ActivityLog)
}

func (h *feedHandler) Setup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *feedHandler) Cleanup(_ sarama.ConsumerGroupSession) error {
	return nil
}

func (h *feedHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		entry, err := DecodeActivity(message.Value)
		if err != nil {
			logger.L.Warn("Skipping undecodable activity event",
				zap.String("topic", message.Topic),
				zap.Int64("offset", message.Offset),
				zap.Error(err))
		} else {
			h.handle(entry)
		}
		session.MarkMessage(message, "")
	}
	return nil
}
