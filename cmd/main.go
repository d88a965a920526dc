package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/umobu/mqtt-repeater/bridge"
	"github.com/umobu/mqtt-repeater/bridge/config"
)

const defaultHealthPort = 8080

func setLoglevel(level string) {
	switch level {
	case "": // Default choice.
		log.SetLevel(log.InfoLevel)
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Errorf("Unknown loglevel: %s", level)
		os.Exit(1)
	}
	log.Debugf("Log level set to %s", level)
}

func healthPortFromEnv() int {
	val, ok := os.LookupEnv("METRICS_PORT")
	if !ok {
		return defaultHealthPort
	}
	port, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("Could not make sense of ENV{METRICS_PORT}: %s", val)
	}
	return port
}

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("No .env file loaded, assuming production: %s", err.Error())
	}
	setLoglevel(os.Getenv("LOG_LEVEL"))

	var configPath string
	var verbose bool
	flag.StringVar(&configPath, "c", "config.json", "Path to the config file")
	flag.StringVar(&configPath, "config", "config.json", "Path to the config file")
	flag.BoolVar(&verbose, "v", false, "Print every event and routed topic")
	flag.BoolVar(&verbose, "verbose", false, "Print every event and routed topic")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Unable to load config file from %s: %s\n", configPath, err)
		os.Exit(1)
	}

	log.Info("MQTT repeater starting up.")
	bridge.Run(bridge.Params{
		Config:     cfg,
		Verbose:    verbose,
		HealthPort: healthPortFromEnv(),
	})
}
