package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

const (
	CirculationTopic = "circulation-events"

	StatsConsumerGroup = "stats-group"
)

type Action string

const (
	ActionCreate Action = "CREATE"
	ActionIssue  Action = "ISSUE"
	ActionReturn Action = "RETURN"
	ActionDelete Action = "DELETE"
)

// EventCirculation is the message published for every successful
// book mutation and consumed by the stats service.
type EventCirculation struct {
	EventUID  string    `json:"eventUid"`
	BookID    int       `json:"bookId"`
	Action    Action    `json:"action"`
	UserName  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS" default:"localhost:9092"`
}

type Producer struct {
	producer sarama.SyncProducer
}

func NewProducer(cfg Config) (*Producer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	p, err := sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
	if err != nil {
		return nil, err
	}
	return &Producer{producer: p}, nil
}

// Publish sends the event keyed by book id so that events for one
// book stay ordered within a partition.
func (p *Producer) Publish(event EventCirculation) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: CirculationTopic,
		Key:   sarama.StringEncoder(strconv.Itoa(event.BookID)),
		Value: sarama.ByteEncoder(value),
	})
	return err
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume runs the consumer-group session loop until the group is closed.
func Consume(consumer sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, topic string) {
	ctx := context.Background()
	for {
		if err := consumer.Consume(ctx, []string{topic}, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}
