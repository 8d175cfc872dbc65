package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/icodeforyou/doctypes-dashboard/chartview"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 10 * time.Second

// Distribution is the retained message published for a loaded series.
type Distribution struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

func NewDistribution(s chartview.Series) Distribution {
	d := Distribution{Labels: s.Labels, Counts: s.Counts}
	if d.Labels == nil {
		d.Labels = []string{}
	}
	if d.Counts == nil {
		d.Counts = []int{}
	}
	return d
}

type Publisher struct {
	client mqtt.Client
	topic  string
	logger *slog.Logger
}

var routePahoLogsOnce sync.Once

func New(broker string, port int16, username, password, topic string) *Publisher {
	logger := slog.Default().With("module", "publish")
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", broker, port))
	opts.SetClientID("doctypes-dashboard-" + uuid.NewString())
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	routePahoLogsOnce.Do(func() {
		mqttLogger := slog.Default().With("module", "mqtt")
		mqtt.CRITICAL = newMqttLogger(mqttLogger, slog.LevelError)
		mqtt.ERROR = newMqttLogger(mqttLogger, slog.LevelError)
		mqtt.WARN = newMqttLogger(mqttLogger, slog.LevelWarn)
	})

	return NewWithClient(mqtt.NewClient(opts), topic)
}

func NewWithClient(client mqtt.Client, topic string) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		logger: slog.Default().With("module", "publish"),
	}
}

func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	token := p.client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("MQTT connect timed out")
	}
	return token.Error()
}

func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

// Publish sends the series as a retained message.
func (p *Publisher) Publish(s chartview.Series) error {
	payload, err := json.Marshal(NewDistribution(s))
	if err != nil {
		return fmt.Errorf("marshalling distribution: %w", err)
	}

	token := p.client.Publish(p.topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s timed out", p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, err)
	}

	p.logger.Debug("distribution published", slog.String("topic", p.topic), slog.Int("categories", s.Len()))
	return nil
}

// OnLoaded is meant to be passed to chartview.WithOnLoaded.
func (p *Publisher) OnLoaded(s chartview.Series) {
	if err := p.Publish(s); err != nil {
		p.logger.Error("failed to publish distribution", slog.Any("error", err))
	}
}
