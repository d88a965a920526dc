package mqtt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	toxiproxy "github.com/Shopify/toxiproxy/v2/client"
	paho "github.com/eclipse/paho.mqtt.golang"
	is2 "github.com/matryer/is"
	log "github.com/sirupsen/logrus"
)

var (
	toxiClient *toxiproxy.Client
	liveBroker bool
)

func TestMain(m *testing.M) {
	log.SetLevel(log.InfoLevel)
	if !haveBinaries("mosquitto", "toxiproxy-server", "mosquitto_pub") {
		// just the unit tests then
		os.Exit(m.Run())
	}
	liveBroker = true
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		runService(ctx, "mosquitto")
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		runService(ctx, "toxiproxy-server")
	}()
	time.Sleep(time.Second)

	upstreamService := "localhost:1883"
	listen := "localhost:1884"
	toxiClient = toxiproxy.NewClient("http://localhost:8474")
	proxy, err := toxiClient.CreateProxy("mqtt", listen, upstreamService)
	if err != nil {
		log.Fatal("creating Toxi Proxy: ", err)
	}
	defer proxy.Delete()

	ret := m.Run()
	cancel()
	wg.Wait()
	os.Exit(ret)
}

func Test_Events(t *testing.T) {
	if !liveBroker {
		t.Skip("mosquitto/toxiproxy not available")
	}
	is := is2.New(t)
	client, events := newTestClient()
	defer client.Disconnect(100)

	waitForEvent(t, events, ConnAck)

	token := client.SubscribeMultiple(map[string]byte{"testTopic": 1}, nil)
	is.True(token.Wait())
	is.NoErr(token.Error())

	is.NoErr(injectMessage("testTopic", "testMessage"))
	ev := waitForEvent(t, events, Inbound)
	is.Equal(ev.Topic, "testTopic")
	is.Equal(string(ev.Payload), "testMessage")
	is.Equal(ev.Retained, false)
}

func Test_Retained(t *testing.T) {
	if !liveBroker {
		t.Skip("mosquitto/toxiproxy not available")
	}
	is := is2.New(t)
	// retain before connecting so the flag survives the broker round trip
	is.NoErr(injectRetained("retainedTopic", "lastValue"))

	client, events := newTestClient()
	defer client.Disconnect(100)
	waitForEvent(t, events, ConnAck)

	token := client.SubscribeMultiple(map[string]byte{"retainedTopic": 1}, nil)
	is.True(token.Wait())
	is.NoErr(token.Error())

	ev := waitForEvent(t, events, Inbound)
	is.Equal(ev.Topic, "retainedTopic")
	is.Equal(ev.Retained, true)
}

func Test_Reset(t *testing.T) {
	if !liveBroker {
		t.Skip("mosquitto/toxiproxy not available")
	}
	is := is2.New(t)
	client, events := newTestClient()
	defer client.Disconnect(100)
	waitForEvent(t, events, ConnAck)

	proxy, err := toxiClient.Proxy("mqtt")
	is.NoErr(err)
	_, err = proxy.AddToxic("reset", "reset_peer", "", 1, toxiproxy.Attributes{})
	is.NoErr(err)
	// traffic so toxiproxy has something to reset
	_ = injectMessage("testTopic", "testMessage")

	waitForEvent(t, events, ConnError)
	err = proxy.RemoveToxic("reset")
	is.NoErr(err)
	// the client reconnects on its own and announces itself again
	waitForEvent(t, events, ConnAck)
}

func newTestClient() (paho.Client, EventChannel) {
	opts := paho.NewClientOptions()
	opts.AddBroker("tcp://localhost:1884")
	opts.SetClientID("testClient")
	opts.SetKeepAlive(2 * time.Second)
	return newClientWithOptions(opts)
}

// waitForEvent drains the channel until an event of the wanted kind shows up.
func waitForEvent(t *testing.T, events EventChannel, kind EventKind) Event {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func haveBinaries(names ...string) bool {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return false
		}
	}
	return true
}

// runService runs a broker-side helper process. Blocks until the context is
// cancelled.
func runService(ctx context.Context, name string) {
	cmd := exec.CommandContext(ctx, name)
	buffer := bytes.NewBuffer(make([]byte, 0, 10000))
	cmd.Stdout = buffer
	cmd.Stderr = buffer
	err := cmd.Start()
	if err != nil {
		log.Fatalf("Error running %s: %v", name, err)
	}
	<-ctx.Done()
	err = cmd.Process.Signal(os.Interrupt)
	if err != nil {
		log.Errorf("Error killing %s: %v", name, err)
	}
	_ = cmd.Wait()
	_ = cmd.Process.Kill()
	fmt.Printf("==== %s stopped ====\n", name)
	fmt.Println(buffer.String())
}

func injectMessage(topic, message string) error {
	return exec.Command("mosquitto_pub", "-h", "localhost", "-p", "1883", "-t", topic, "-m", message).Run()
}

func injectRetained(topic, message string) error {
	return exec.Command("mosquitto_pub", "-h", "localhost", "-p", "1883", "-r", "-t", topic, "-m", message).Run()
}
