package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/config"
	"ms-booking/internal/models"
)

// Producer streams booking lifecycle events. Publishing is best-effort from
// the caller's point of view: the booking transaction has already committed
// by the time an event goes out.
type Producer struct {
	Writer *kafka.Writer
	Topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

func (p *Producer) publish(topic, key string, payload interface{}) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishBookingCreated(booking models.Booking) error {
	return p.publish(p.Topics.BookingCreated, booking.BookingID, booking)
}

func (p *Producer) PublishBookingVerified(booking models.Booking) error {
	return p.publish(p.Topics.BookingVerified, booking.BookingID, booking)
}

func (p *Producer) PublishBookingCancelled(booking models.Booking) error {
	return p.publish(p.Topics.BookingCancelled, booking.BookingID, booking)
}

func (p *Producer) PublishEventClosed(event models.Event) error {
	return p.publish(p.Topics.EventClosed, event.EventID, event)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
