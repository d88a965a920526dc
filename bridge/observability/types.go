package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

type Channel chan StatusMessage

type StatusMessage int

const (
	SourceReceived StatusMessage = iota
	SourceError
	RouteMiss
	DestPublished
	DestError
)

func (d StatusMessage) String() string {
	return [...]string{"SourceReceived", "SourceError", "RouteMiss", "DestPublished", "DestError"}[d]
}

type Params struct {
	Channel    Channel
	HealthPort int
}

type observability struct {
	channel        Channel
	sourceReceived prometheus.Counter
	sourceErrors   prometheus.Counter
	routeMisses    prometheus.Counter
	destPublished  prometheus.Counter
	destErrors     prometheus.Counter
	destState      prometheus.Gauge
	logger         *log.Entry
	ready          bool
	healthPort     int
	promReg        *prometheus.Registry
}
