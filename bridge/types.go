package bridge

import (
	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/umobu/mqtt-repeater/bridge/config"
	"github.com/umobu/mqtt-repeater/bridge/mqtt"
	"github.com/umobu/mqtt-repeater/bridge/observability"
	"github.com/umobu/mqtt-repeater/bridge/route"
)

type Params struct {
	Config     *config.Config
	Verbose    bool
	HealthPort int
}

// loopState tracks where the source listener is in its connect/subscribe
// cycle. Only the source loop reads or writes it.
type loopState int

const (
	stateDisconnected loopState = iota
	stateUnsubscribed           // connected, subscription request not yet issued
	stateSubscribed
)

const qosAtLeastOnce byte = 1

// repeater holds what the two listener loops share: the read-only route
// table and the destination publish handle. Only the source loop publishes.
type repeater struct {
	table        route.Table
	source       paho.Client
	dest         paho.Client
	sourceEvents mqtt.EventChannel
	destEvents   mqtt.EventChannel
	obsChannel   observability.Channel
	verbose      bool
	state        loopState
	srcLogger    *log.Entry
	destLogger   *log.Entry
}
