// Package bridge wires a source MQTT connection to a destination one: every
// message on a routed source topic is transformed and republished on the
// mapped destination topic. The two listener loops run until the process is
// signalled or a routing failure takes it down.
package bridge

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/umobu/mqtt-repeater/bridge/config"
	"github.com/umobu/mqtt-repeater/bridge/mqtt"
	"github.com/umobu/mqtt-repeater/bridge/observability"
	"github.com/umobu/mqtt-repeater/bridge/route"
)

func Run(params Params) {
	rootCtx := context.Background()
	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()

	table := route.Build(routeEntries(params.Config.Topics))
	log.Infof("Route table holds %d topics", len(table))

	obsChannel := observability.GetChannel(100)
	obs := observability.Initialize(observability.Params{
		Channel:    obsChannel,
		HealthPort: params.HealthPort,
	})
	go obs.Run(ctx)

	source, sourceEvents := mqtt.NewClient(params.Config.Source)
	dest, destEvents := mqtt.NewClient(params.Config.Destination)

	r := repeater{
		table:        table,
		source:       source,
		dest:         dest,
		sourceEvents: sourceEvents,
		destEvents:   destEvents,
		obsChannel:   obsChannel,
		verbose:      params.Verbose,
		state:        stateDisconnected,
		srcLogger:    log.WithFields(log.Fields{"module": "source"}),
		destLogger:   log.WithFields(log.Fields{"module": "destination"}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.sourceLoop(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.destLoop(ctx)
	}()
	obs.Ready()
	log.Debug("Repeater running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	cancel()
	log.Warn("Cancel sent to workers. Waiting for workers to exit cleanly")
	wg.Wait()
	close(obsChannel) // both loops have exited; no senders remain
	log.Infof("Program exiting. There are currently %d goroutines.", runtime.NumGoroutine())
}

func routeEntries(topics []config.Topic) []route.Entry {
	entries := make([]route.Entry, 0, len(topics))
	for _, t := range topics {
		entries = append(entries, route.Entry{From: t.From, To: t.To, Rule: t.Payload})
	}
	return entries
}
