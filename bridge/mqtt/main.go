// Package mqtt is the connection factory. It turns a config.Connection into a
// paho client plus a channel of lifecycle events and inbound messages. All
// reconnection is owned by the paho layer; consumers just keep reading the
// channel.
package mqtt

import (
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/umobu/mqtt-repeater/bridge/config"
)

// NewClient builds a connecting client for the given broker. The returned
// client may still be mid-handshake; the first ConnAck on the event channel
// signals it is usable. Unreadable or malformed TLS material is fatal, since
// no bridging is possible without credentials.
func NewClient(cfg config.Connection) (paho.Client, EventChannel) {
	log.Debugf("Building MQTT client for %s:%d (clientID %s)", cfg.Host, cfg.Port, cfg.ClientID)
	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetKeepAlive(cfg.KeepAlive)
	opts.SetCleanSession(cfg.CleanSession)
	opts.SetConnectTimeout(cfg.ConnTimeout)
	opts.SetMessageChannelDepth(uint(cfg.Inflight))
	opts.SetTLSConfig(newTlsConfig(cfg))
	if a := cfg.Auth.Password; a != nil {
		opts.SetUsername(a.Login)
		opts.SetPassword(a.Password)
	}
	return newClientWithOptions(opts)
}

// newClientWithOptions wires the event channel into the client options and
// starts the connection attempt. Split out so tests can run against a plain
// tcp broker.
func newClientWithOptions(opts *paho.ClientOptions) (paho.Client, EventChannel) {
	events := make(EventChannel, eventBuffer)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(_ paho.Client) {
		events <- Event{Kind: ConnAck}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		events <- Event{Kind: ConnError, Err: err}
	})
	opts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		events <- Event{
			Kind:     Inbound,
			Topic:    msg.Topic(),
			Payload:  msg.Payload(),
			Retained: msg.Retained(),
		}
	})
	client := paho.NewClient(opts)
	go func() {
		// With connect-retry enabled this only fails on non-retryable
		// errors. Surface those like any other connection error.
		token := client.Connect()
		if token.Wait() && token.Error() != nil {
			events <- Event{Kind: ConnError, Err: token.Error()}
		}
	}()
	return client, events
}
