package config

import (
	"time"

	"github.com/umobu/mqtt-repeater/bridge/route"
)

// KeyType selects how the client private key is interpreted in certificate
// auth mode.
type KeyType string

const (
	RSA KeyType = "RSA"
	ECC KeyType = "ECC"
)

// PasswordAuth is protocol-level username/password over TLS with the
// platform's trusted roots.
type PasswordAuth struct {
	Login    string
	Password string
}

// CertificateAuth is mutual TLS with an explicitly supplied CA and client
// keypair. All three fields are paths to PEM files.
type CertificateAuth struct {
	CA         string
	ClientCert string
	ClientKey  string
	KeyType    KeyType
}

// Auth is a closed two-variant union; exactly one of the fields is non-nil
// after a successful config load.
type Auth struct {
	Password    *PasswordAuth
	Certificate *CertificateAuth
}

// Connection holds everything needed to reach one broker. Immutable after
// load; there is one instance for the source and one for the destination.
type Connection struct {
	Host         string
	Auth         Auth
	ClientID     string
	Port         int
	KeepAlive    time.Duration
	CleanSession bool
	ConnTimeout  time.Duration
	Inflight     int
}

// Topic is one routing entry, in file order.
type Topic struct {
	From    string     `json:"from"`
	To      string     `json:"to"`
	Payload route.Rule `json:"payload"`
}

// Config is the whole config file.
type Config struct {
	Source      Connection `json:"source"`
	Destination Connection `json:"destination"`
	Topics      []Topic    `json:"topics"`
}

const (
	defaultClientID     = "rust-mqtt-repeater" // kept for drop-in config compatibility
	defaultPort         = 8883
	defaultKeepAlive    = 30 * time.Second
	defaultConnTimeout  = 5 * time.Second
	defaultInflight     = 100
	defaultCleanSession = true
)
