package mqtt

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/umobu/mqtt-repeater/bridge/config"
)

// newTlsConfig builds the transport config for either auth mode. Password
// auth trusts the platform root store; certificate auth trusts exactly the
// configured CA and presents the client keypair.
func newTlsConfig(cfg config.Connection) *tls.Config {
	if cfg.Auth.Password != nil {
		pool, err := x509.SystemCertPool()
		if err != nil {
			log.Fatalf("Loading platform root certificates: %s", err)
		}
		return &tls.Config{RootCAs: pool}
	}
	a := cfg.Auth.Certificate
	ca, err := os.ReadFile(a.CA)
	if err != nil {
		log.Fatalf("Reading CA certificate: %s", err)
	}
	certpool := x509.NewCertPool()
	if !certpool.AppendCertsFromPEM(ca) {
		log.Fatalf("No certificates found in CA file %s", a.CA)
	}
	keyPem, err := os.ReadFile(a.ClientKey)
	if err != nil {
		log.Fatalf("Reading client key: %s", err)
	}
	if err := checkKeyKind(keyPem, a.KeyType); err != nil {
		log.Fatalf("Client key %s: %s", a.ClientKey, err)
	}
	clientKeyPair, err := tls.LoadX509KeyPair(a.ClientCert, a.ClientKey)
	if err != nil {
		log.Fatalf("tls.LoadX509KeyPair(%s,%s): %s", a.ClientCert, a.ClientKey, err)
	}
	log.Debugf("Initialized TLS client config with CA (%s) and client cert/key (%s/%s)",
		a.CA, a.ClientCert, a.ClientKey)
	return &tls.Config{
		RootCAs:      certpool,
		Certificates: []tls.Certificate{clientKeyPair},
	}
}

// checkKeyKind verifies the PEM private key matches the configured key kind.
func checkKeyKind(keyPem []byte, kind config.KeyType) error {
	block, _ := pem.Decode(keyPem)
	if block == nil {
		return errors.New("no PEM block found")
	}
	var key any
	var err error
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return fmt.Errorf("parsing private key: %w", err)
	}
	switch key.(type) {
	case *rsa.PrivateKey:
		if kind != config.RSA {
			return fmt.Errorf("key is RSA but keyType is %s", kind)
		}
	case *ecdsa.PrivateKey:
		if kind != config.ECC {
			return fmt.Errorf("key is ECC but keyType is %s", kind)
		}
	default:
		return fmt.Errorf("unsupported private key type %T", key)
	}
	return nil
}
