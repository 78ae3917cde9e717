package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fleetconsole/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kafkago "github.com/segmentio/kafka-go"
)

// Client is the unified broker client (MQTT or Kafka). Robots normally
// hang off a site-local MQTT daemon; the kafka backend serves fleets
// bridged through a cluster instead.
type Client struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	backend  string
	onUp     func()
	onDown   func(error)
	mqttConn mqtt.Client
	kafkaW   *kafkago.Writer
	kafkaR   *kafkago.Reader

	// stored subscription, replayed after an MQTT reconnect
	subFilter  string
	subHandler func(topic string, payload []byte)
}

func NewClient(cfg *config.MessagingConfig) *Client {
	return &Client{
		cfg:     cfg,
		backend: cfg.Backend,
	}
}

// SetConnectionHandlers registers lifecycle callbacks. Must be called
// before Connect. Kafka has no session to lose; it reports up once and
// never down.
func (c *Client) SetConnectionHandlers(onUp func(), onDown func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUp = onUp
	c.onDown = onDown
}

// Connect establishes the broker connection.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.backend {
	case "mqtt":
		return c.connectMQTT()
	case "kafka":
		return c.connectKafka()
	default:
		return fmt.Errorf("unknown messaging backend: %s", c.backend)
	}
}

func (c *Client) connectMQTT() error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.MQTT.BrokerURL).
		SetClientID(c.cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	if c.cfg.MQTT.Username != "" {
		opts.SetUsername(c.cfg.MQTT.Username).SetPassword(c.cfg.MQTT.Password)
	}
	onUp := c.onUp
	opts.SetOnConnectHandler(func(conn mqtt.Client) {
		// Sessions are clean, so a reconnect loses the broker-side
		// subscription; replay it before announcing the link is up.
		c.mu.RLock()
		filter, handler := c.subFilter, c.subHandler
		c.mu.RUnlock()
		if filter != "" {
			token := conn.Subscribe(filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
				handler(msg.Topic(), msg.Payload())
			})
			token.Wait()
			if err := token.Error(); err != nil {
				log.Printf("messaging: resubscribe %s: %v", filter, err)
			}
		}
		if onUp != nil {
			onUp()
		}
	})
	if c.onDown != nil {
		onDown := c.onDown
		opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) { onDown(err) })
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.mqttConn = client
	return nil
}

func (c *Client) connectKafka() error {
	c.kafkaW = &kafkago.Writer{
		Addr:         kafkago.TCP(c.cfg.Kafka.Brokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireOne,
	}
	if c.onUp != nil {
		c.onUp()
	}
	return nil
}

// Publish sends one message. Commands use qos 0: the protocol is
// fire-and-forget and a queued duplicate arriving late is worse than a
// drop.
func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.backend {
	case "mqtt":
		if c.mqttConn == nil || !c.mqttConn.IsConnected() {
			return fmt.Errorf("mqtt not connected")
		}
		token := c.mqttConn.Publish(topic, 0, false, payload)
		token.Wait()
		return token.Error()
	case "kafka":
		if c.kafkaW == nil {
			return fmt.Errorf("kafka writer not initialized")
		}
		return c.kafkaW.WriteMessages(context.Background(), kafkago.Message{
			Topic: c.cfg.Kafka.Topic,
			Key:   []byte(topic),
			Value: payload,
		})
	default:
		return fmt.Errorf("unknown backend: %s", c.backend)
	}
}

// PublishEncoded encodes and publishes anything carrying its own wire
// encoding, such as a wire.Command.
func (c *Client) PublishEncoded(topic string, msg interface{ Encode() ([]byte, error) }) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.Publish(topic, data)
}

// Subscribe registers a handler for inbound messages matching the
// filter. The handler receives the routing topic: the MQTT topic, or
// the message key on kafka (the bridge writes the MQTT topic there).
func (c *Client) Subscribe(filter string, handler func(topic string, payload []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.backend {
	case "mqtt":
		if c.mqttConn == nil {
			return fmt.Errorf("mqtt not connected")
		}
		c.subFilter = filter
		c.subHandler = handler
		token := c.mqttConn.Subscribe(filter, 0, func(_ mqtt.Client, msg mqtt.Message) {
			handler(msg.Topic(), msg.Payload())
		})
		token.Wait()
		return token.Error()
	case "kafka":
		c.kafkaR = kafkago.NewReader(kafkago.ReaderConfig{
			Brokers: c.cfg.Kafka.Brokers,
			Topic:   c.cfg.Kafka.Topic,
			GroupID: c.cfg.Kafka.GroupID,
		})
		go func() {
			for {
				msg, err := c.kafkaR.ReadMessage(context.Background())
				if err != nil {
					log.Printf("messaging: kafka read: %v", err)
					return
				}
				handler(string(msg.Key), msg.Value)
			}
		}()
		return nil
	default:
		return fmt.Errorf("unknown backend: %s", c.backend)
	}
}

// IsConnected reports broker reachability.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.backend {
	case "mqtt":
		return c.mqttConn != nil && c.mqttConn.IsConnected()
	case "kafka":
		return c.kafkaW != nil
	default:
		return false
	}
}

// Close shuts down the broker connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mqttConn != nil {
		c.mqttConn.Disconnect(1000)
		c.mqttConn = nil
	}
	if c.kafkaW != nil {
		c.kafkaW.Close()
		c.kafkaW = nil
	}
	if c.kafkaR != nil {
		c.kafkaR.Close()
		c.kafkaR = nil
	}
}
