package sdk

import (
	"crypto/tls"
	"net/url"

	"github.com/stella-systems/stellanow-sdk-go/auth"
	"github.com/stella-systems/stellanow-sdk-go/config"
	"github.com/stella-systems/stellanow-sdk-go/errors"
	"github.com/stella-systems/stellanow-sdk-go/mqttclient"
	"github.com/stella-systems/stellanow-sdk-go/natsclient"
	"github.com/stella-systems/stellanow-sdk-go/pkg/tlsutil"
	"github.com/stella-systems/stellanow-sdk-go/queue"
	"github.com/stella-systems/stellanow-sdk-go/sink"
	"github.com/stella-systems/stellanow-sdk-go/transport"
)

// NewFromConfig validates cfg and assembles the full pipeline: the configured
// auth strategy and transport, a FIFO queue and a sink.
func NewFromConfig(cfg config.Config, options ...Option) (*SDK, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st := newSettings(options)

	clientID := cfg.Broker.ClientID
	if clientID == "" {
		clientID = auth.NewClientID()
	}

	tr, err := newTransport(cfg.Broker, clientID, st)
	if err != nil {
		return nil, err
	}

	strategy, err := newStrategy(cfg, clientID, st)
	if err != nil {
		return nil, err
	}

	snk, err := sink.New(tr, strategy,
		sink.WithLogger(st.logger.With("component", "sink")),
		sink.WithClock(st.clock),
		sink.WithBackoff(cfg.Delivery.ReconnectBaseDelay, cfg.Delivery.ReconnectMaxDelay),
		sink.WithMetrics(st.registry),
	)
	if err != nil {
		return nil, errors.WrapFatal(err, "SDK", "NewFromConfig", "create sink")
	}

	q := queue.NewFIFO(
		queue.WithLogger(st.logger.With("component", "queue")),
		queue.WithMetrics(st.registry),
	)

	opts := Options{
		OrganizationID:         cfg.Organization.ID,
		ProjectID:              cfg.Organization.ProjectID,
		PumpInterval:           cfg.Delivery.PumpInterval,
		BatchSize:              cfg.Delivery.BatchSize,
		MaxConcurrentPublishes: cfg.Delivery.MaxConcurrentPublishes,
		PublishRate:            cfg.Delivery.PublishRate,
	}
	return New(opts, snk, q, options...)
}

func newTransport(b config.Broker, clientID string, st settings) (transport.Transport, error) {
	tlsCfg, err := brokerTLS(b)
	if err != nil {
		return nil, err
	}

	switch b.Transport {
	case config.TransportNATS:
		opts := []natsclient.ClientOption{
			natsclient.WithLogger(st.logger.With("component", "nats-client")),
			natsclient.WithName(clientID),
		}
		if b.ConnectTimeout > 0 {
			opts = append(opts, natsclient.WithTimeout(b.ConnectTimeout))
		}
		if b.Stream != "" {
			opts = append(opts, natsclient.WithStream(b.Stream))
		}
		if tlsCfg != nil {
			opts = append(opts, natsclient.WithTLSConfig(tlsCfg))
		}
		c, err := natsclient.NewClient(b.URL, opts...)
		if err != nil {
			return nil, errors.WrapFatal(err, "SDK", "NewFromConfig", "create nats transport")
		}
		return c, nil

	default:
		opts := []mqttclient.Option{
			mqttclient.WithLogger(st.logger.With("component", "mqtt-client")),
		}
		if b.KeepAlive > 0 {
			opts = append(opts, mqttclient.WithKeepAlive(b.KeepAlive))
		}
		if b.ConnectTimeout > 0 {
			opts = append(opts, mqttclient.WithConnectTimeout(b.ConnectTimeout))
		}
		if tlsCfg != nil {
			opts = append(opts, mqttclient.WithTLSConfig(tlsCfg))
		}
		c, err := mqttclient.NewClient(b.URL, opts...)
		if err != nil {
			return nil, errors.WrapFatal(err, "SDK", "NewFromConfig", "create mqtt transport")
		}
		return c, nil
	}
}

// brokerTLS returns nil when the broker needs no TLS settings
func brokerTLS(b config.Broker) (*tls.Config, error) {
	c := tlsutil.ClientConfig{
		CAFiles:            b.TLS.CAFiles,
		CertFile:           b.TLS.CertFile,
		KeyFile:            b.TLS.KeyFile,
		MinVersion:         b.TLS.MinVersion,
		InsecureSkipVerify: b.TLS.InsecureSkipVerify,
	}
	if !c.Enabled() && !secureScheme(b.URL) {
		return nil, nil
	}
	tlsCfg, err := tlsutil.LoadClientConfig(c)
	if err != nil {
		return nil, errors.WrapFatal(err, "SDK", "NewFromConfig", "load broker tls")
	}
	return tlsCfg, nil
}

func secureScheme(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "ssl", "tls", "mqtts", "wss":
		return true
	}
	return false
}

func newStrategy(cfg config.Config, clientID string, st settings) (auth.Strategy, error) {
	if cfg.Auth.Mode == config.AuthModeNone {
		return auth.NewNoAuth(clientID), nil
	}

	strategy, err := auth.NewOIDCStrategy(auth.Config{
		Authority:      cfg.Auth.Authority,
		OrganizationID: cfg.Organization.ID,
		ClientID:       cfg.Auth.ClientID,
		Username:       cfg.Auth.Username,
		Password:       cfg.Auth.Password,
		MQTTClientID:   clientID,
	},
		auth.WithLogger(st.logger.With("component", "auth")),
		auth.WithMetrics(st.registry),
	)
	if err != nil {
		return nil, errors.WrapFatal(err, "SDK", "NewFromConfig", "create auth strategy")
	}
	return strategy, nil
}
