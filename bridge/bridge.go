package bridge

import (
	"context"
	"fmt"

	"github.com/umobu/mqtt-repeater/bridge/mqtt"
	"github.com/umobu/mqtt-repeater/bridge/observability"
	"github.com/umobu/mqtt-repeater/bridge/route"
)

// sourceLoop drives the source connection's events. One event is processed at
// a time, so per-topic ordering from the source carries through to the
// destination.
func (r *repeater) sourceLoop(ctx context.Context) {
	r.srcLogger.Debug("Source listener running")
	for {
		select {
		case <-ctx.Done():
			r.srcLogger.Debug("Source listener shutting down")
			return
		case ev := <-r.sourceEvents:
			r.handleSourceEvent(ev)
		}
	}
}

func (r *repeater) handleSourceEvent(ev mqtt.Event) {
	if r.verbose {
		fmt.Printf("[SRC] %s\n", ev)
	}
	switch ev.Kind {
	case mqtt.ConnAck:
		r.subscribe()
	case mqtt.Inbound:
		r.obsChannel <- observability.SourceReceived
		r.routeMessage(ev)
	case mqtt.ConnError:
		r.obsChannel <- observability.SourceError
		r.srcLogger.Warnf("Source connection error: %s", ev.Err)
		// the client layer reconnects on its own; the next connack
		// triggers a fresh subscription
		r.state = stateDisconnected
	}
}

// subscribe issues one batch subscription for every routed source topic. The
// loop counts as subscribed once the client has accepted the request; it does
// not wait for the broker's acknowledgment.
func (r *repeater) subscribe() {
	if r.state != stateDisconnected {
		return
	}
	r.state = stateUnsubscribed
	filters := make(map[string]byte, len(r.table))
	for _, topic := range r.table.Topics() {
		filters[topic] = qosAtLeastOnce
	}
	token := r.source.SubscribeMultiple(filters, nil)
	go func() {
		// A rejected subscription leaves the repeater connected but
		// deaf, which is worse than being dead: a supervisor can
		// restart dead.
		if token.Wait() && token.Error() != nil {
			r.srcLogger.Fatalf("Subscribing to source topics: %s", token.Error())
		}
	}()
	r.state = stateSubscribed
	r.srcLogger.Infof("Subscribed to %d source topics", len(filters))
}

// routeMessage forwards one inbound message: route lookup, payload transform,
// publish. Unrouted topics are dropped silently.
func (r *repeater) routeMessage(ev mqtt.Event) {
	if r.state != stateSubscribed {
		r.srcLogger.Debugf("Dropping message on %s while not subscribed", ev.Topic)
		return
	}
	rt, ok := r.table.Lookup(ev.Topic)
	if !ok {
		r.obsChannel <- observability.RouteMiss
		r.srcLogger.Tracef("No route for topic %s, dropping", ev.Topic)
		return
	}
	payload := route.Transform(ev.Payload, rt.Rule)
	if r.verbose {
		fmt.Printf("[SRC->DEST] %s -> %s\n", ev.Topic, rt.To)
	}
	token := r.dest.Publish(rt.To, qosAtLeastOnce, ev.Retained, payload)
	if token.Wait() && token.Error() != nil {
		r.obsChannel <- observability.DestError
		r.srcLogger.Fatalf("Publishing to destination topic %s: %s", rt.To, token.Error())
	}
	r.obsChannel <- observability.DestPublished
}

// destLoop drains the destination connection's events. It never originates a
// publish; it exists so the destination client keeps getting driven and so
// its connection state shows up in the logs and metrics.
func (r *repeater) destLoop(ctx context.Context) {
	r.destLogger.Debug("Destination listener running")
	for {
		select {
		case <-ctx.Done():
			r.destLogger.Debug("Destination listener shutting down")
			return
		case ev := <-r.destEvents:
			if r.verbose {
				fmt.Printf("[DEST] %s\n", ev)
			}
			switch ev.Kind {
			case mqtt.ConnAck:
				r.destLogger.Debug("Destination connected")
			case mqtt.ConnError:
				r.obsChannel <- observability.DestError
				r.destLogger.Warnf("Destination connection error: %s", ev.Err)
			}
		}
	}
}
