// Package mqtt publishes forecast evaluation reports to an MQTT broker so
// downstream consumers of the sensor network can subscribe to model results.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/roadflow/core/logger"
	coremetrics "github.com/kilianp07/roadflow/core/metrics"
)

// Config defines the connection parameters for the forecast publisher.
type Config struct {
	Enabled        bool   `json:"enabled"`
	Broker         string `json:"broker"`
	ClientID       string `json:"client_id"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	Topic          string `json:"topic"`
	QoS            byte   `json:"qos"`
	Retain         bool   `json:"retain"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "roadflow"
	}
	if c.Topic == "" {
		c.Topic = "roadflow/forecast"
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 5
	}
}

// Validate checks mandatory fields when the publisher is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	return nil
}

// sensorReport is the per-sensor wire representation. MASE is omitted when
// the ratio is undefined.
type sensorReport struct {
	Sensor   int      `json:"sensor"`
	ModelMAE float64  `json:"model_mae"`
	NaiveMAE float64  `json:"naive_mae"`
	MASE     *float64 `json:"mase,omitempty"`
}

type reportPayload struct {
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	ModelMAE  float64        `json:"model_mae"`
	NaiveMAE  float64        `json:"naive_mae"`
	RMSE      float64        `json:"rmse"`
	MeanMASE  *float64       `json:"mase,omitempty"`
	Sensors   []sensorReport `json:"sensors"`
}

type pahoClient interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher sends evaluation reports over MQTT.
type Publisher struct {
	cli     pahoClient
	cfg     Config
	log     logger.Logger
	timeout time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPublisher connects to the configured broker.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	p := &Publisher{
		cli:     newMQTTClient(opts),
		cfg:     cfg,
		log:     log,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
	tok := p.cli.Connect()
	if !tok.WaitTimeout(p.timeout) {
		return nil, fmt.Errorf("connect to %s: timeout", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}
	return p, nil
}

// PublishReport serializes the evaluation report and publishes it on the
// configured topic.
func (p *Publisher) PublishReport(runID string, rep coremetrics.Report) error {
	payload := reportPayload{
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		ModelMAE:  rep.ModelMAE,
		NaiveMAE:  rep.NaiveMAE,
		RMSE:      rep.RMSE,
		Sensors:   make([]sensorReport, len(rep.Sensors)),
	}
	if rep.UndefinedMASE < len(rep.Sensors) {
		mase := rep.MeanMASE
		payload.MeanMASE = &mase
	}
	for i, se := range rep.Sensors {
		sr := sensorReport{Sensor: i, ModelMAE: se.ModelMAE, NaiveMAE: se.NaiveMAE}
		if !se.Undefined() {
			mase := se.MASE
			sr.MASE = &mase
		}
		payload.Sensors[i] = sr
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tok := p.cli.Publish(p.cfg.Topic, p.cfg.QoS, p.cfg.Retain, data)
	if !tok.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: timeout", p.cfg.Topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.cfg.Topic, err)
	}
	p.log.Infof("published report %s to %s", runID, p.cfg.Topic)
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.cli.Disconnect(250)
}
