package rabbitmq

import (
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName      = "attendance.events"
	EventQueueName    = "attendance.events.push"
	AbsenceQueueName  = "attendance.events.absence"
	RoutingKeyEvent   = "event"
	RoutingKeyAbsence = "absence"
	ReconnectDelay    = 5 * time.Second
)

// Client wraps the AMQP connection used to reach the push-notification
// gateway. Constructed once at startup and injected where needed.
type Client struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	URL     string
}

// Setup dials the broker and declares the topology.
func Setup(url string) (*Client, error) {
	c := &Client{URL: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	var err error

	log.Printf("Attempting to connect to RabbitMQ...")
	c.Conn, err = amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.Channel, err = c.Conn.Channel()
	if err != nil {
		c.Conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := c.declareTopology(); err != nil {
		c.Channel.Close()
		c.Conn.Close()
		return err
	}

	// Watch for errors in background
	go c.watchConnection()

	log.Println("RabbitMQ connected successfully")
	return nil
}

func (c *Client) declareTopology() error {
	err := c.Channel.ExchangeDeclare(
		ExchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// The push gateway consumes attendance events from here
	_, err = c.Channel.QueueDeclare(
		EventQueueName, // name
		true,           // durable
		false,          // delete when unused
		false,          // exclusive
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare event queue: %w", err)
	}

	err = c.Channel.QueueBind(
		EventQueueName,  // queue name
		RoutingKeyEvent, // routing key
		ExchangeName,    // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind event queue: %w", err)
	}

	// Absence notifications take a separate queue so the gateway can batch
	// them differently from live scan events
	_, err = c.Channel.QueueDeclare(
		AbsenceQueueName, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare absence queue: %w", err)
	}

	err = c.Channel.QueueBind(
		AbsenceQueueName,  // queue name
		RoutingKeyAbsence, // routing key
		ExchangeName,      // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind absence queue: %w", err)
	}

	return nil
}

func (c *Client) watchConnection() {
	notifyClose := c.Conn.NotifyClose(make(chan *amqp.Error))

	if err := <-notifyClose; err != nil {
		log.Printf("RabbitMQ connection closed: %v. Reconnecting...", err)
		c.reconnect()
	}
}

func (c *Client) reconnect() {
	for {
		time.Sleep(ReconnectDelay)
		if err := c.connect(); err == nil {
			log.Println("RabbitMQ reconnected")
			return
		} else {
			log.Printf("Failed to reconnect to RabbitMQ: %v. Retrying in %v...", err, ReconnectDelay)
		}
	}
}

// Close closes the connection and channel
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.Channel != nil {
		c.Channel.Close()
	}
	if c.Conn != nil {
		c.Conn.Close()
	}
}

// PublishJSON publishes a persistent JSON message to the attendance exchange.
func (c *Client) PublishJSON(routingKey string, body []byte) error {
	if c == nil || c.Channel == nil || c.Channel.IsClosed() {
		return fmt.Errorf("RabbitMQ client not (yet) connected")
	}

	err := c.Channel.Publish(
		ExchangeName, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
