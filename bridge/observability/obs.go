// Package observability keeps counters over what the repeater is doing and
// serves them, plus a health check, over HTTP. The listener loops feed it
// through a channel so they never touch prometheus directly.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func Initialize(params Params) *observability {
	reg := prometheus.NewRegistry()
	obs := observability{
		channel:    params.Channel,
		logger:     log.WithFields(log.Fields{"module": "observability"}),
		healthPort: params.HealthPort,
		promReg:    reg,
	}

	obs.sourceReceived = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "source_received",
		Help: "Number of messages received from the source broker",
	})
	obs.sourceErrors = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "source_errors",
		Help: "Number of source connection errors",
	})
	obs.routeMisses = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "route_misses",
		Help: "Number of messages dropped for lack of a route",
	})
	obs.destPublished = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "dest_published",
		Help: "Number of messages published to the destination broker",
	})
	obs.destErrors = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "dest_errors",
		Help: "Number of destination connection errors",
	})
	obs.destState = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "dest_state",
		Help: "Destination broker status (0 is OK)",
	})
	return &obs // Returned so the bridge can flip the health status.
}

func (obs *observability) Run(ctx context.Context) {
	obs.logger.Debug("Observability worker is running")
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		// The bridge closes the channel once both listener loops have
		// exited; until then a loop may still send status messages.
		for msg := range obs.channel {
			obs.handleChannelMessage(msg)
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.runHttpServer(ctx) // returns when the context is cancelled.
	}()
	wg.Wait()
	obs.logger.Info("Observability worker is done")
}

// runHttpServer serves the healthz and metrics endpoints. Blocks until the
// context is cancelled.
func (obs *observability) runHttpServer(ctx context.Context) {
	router := mux.NewRouter().StrictSlash(true)
	router.Handle("/metrics", promhttp.HandlerFor(obs.promReg, promhttp.HandlerOpts{}))
	router.HandleFunc("/healthz", obs.HealthzHandler)
	listenAddr := fmt.Sprintf(":%d", obs.healthPort)
	obs.logger.Infof("Observability service attempting to listen to port %s", listenAddr)
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			obs.logger.Fatal(err)
		}
	}()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		obs.logger.Fatalf("Observability service shutdown error: %s", err)
	}
	wg.Wait()
}

func (obs *observability) handleChannelMessage(msg StatusMessage) {
	obs.logger.Tracef("Observability received %s", msg)

	switch msg {
	case SourceReceived:
		obs.sourceReceived.Inc()
	case SourceError:
		obs.sourceErrors.Inc()
	case RouteMiss:
		obs.routeMisses.Inc()
	case DestPublished:
		obs.destPublished.Inc()
		obs.destState.Set(0)
	case DestError:
		obs.destErrors.Inc()
		obs.destState.Set(1)
	default:
		obs.logger.Errorf("Observability: unknown message received")
	}
}

func GetChannel(size int) Channel {
	return make(Channel, size)
}

func (obs *observability) HealthzHandler(w http.ResponseWriter, _ *http.Request) {
	if obs.ready {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	} else {
		w.WriteHeader(423)
		_, _ = w.Write([]byte("not ready"))
	}
}

func (obs *observability) Ready() {
	obs.ready = true
}
