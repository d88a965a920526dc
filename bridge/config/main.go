// Package config loads the repeater's JSON config file: two broker
// connections and the list of topic routes. Defaults match the config format
// the repeater has always shipped with, so existing deployments keep working.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// Load reads and parses the config file. Any error here is startup-fatal at
// the CLI layer; nothing is retried.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if err := c.Source.validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Destination.validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	for i, t := range c.Topics {
		if t.From == "" || t.To == "" {
			return fmt.Errorf("topics[%d]: from and to are required", i)
		}
	}
	return nil
}

func (c *Connection) validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Auth.Password == nil && c.Auth.Certificate == nil {
		return errors.New("auth is required")
	}
	// zero values were replaced with defaults during unmarshalling, so
	// anything non-positive here was configured that way
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.KeepAlive <= 0 {
		return fmt.Errorf("keepAlive must be positive, got %s", c.KeepAlive)
	}
	if c.ConnTimeout <= 0 {
		return fmt.Errorf("connTimeout must be positive, got %s", c.ConnTimeout)
	}
	if c.Inflight <= 0 {
		return fmt.Errorf("inflight must be positive, got %d", c.Inflight)
	}
	return nil
}

// UnmarshalJSON decodes a connection and fills in the defaults for everything
// the file leaves out.
func (c *Connection) UnmarshalJSON(data []byte) error {
	var w struct {
		Host         string `json:"host"`
		Auth         Auth   `json:"auth"`
		ClientID     string `json:"clientID"`
		Port         int    `json:"port"`
		KeepAlive    int    `json:"keepAlive"`
		CleanSession *bool  `json:"cleanSession"`
		ConnTimeout  int    `json:"connTimeout"`
		Inflight     int    `json:"inflight"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.Host = w.Host
	c.Auth = w.Auth
	c.ClientID = w.ClientID
	if c.ClientID == "" {
		c.ClientID = defaultClientID
	}
	c.Port = w.Port
	if c.Port == 0 {
		c.Port = defaultPort
	}
	c.KeepAlive = time.Duration(w.KeepAlive) * time.Second
	if w.KeepAlive == 0 {
		c.KeepAlive = defaultKeepAlive
	}
	c.CleanSession = defaultCleanSession
	if w.CleanSession != nil {
		c.CleanSession = *w.CleanSession
	}
	c.ConnTimeout = time.Duration(w.ConnTimeout) * time.Second
	if w.ConnTimeout == 0 {
		c.ConnTimeout = defaultConnTimeout
	}
	c.Inflight = w.Inflight
	if c.Inflight == 0 {
		c.Inflight = defaultInflight
	}
	return nil
}

// UnmarshalJSON picks the auth variant by field shape: login/password on one
// side, ca/clientCert/clientKey on the other. Mixing them is an error.
func (a *Auth) UnmarshalJSON(data []byte) error {
	var w struct {
		Login      string  `json:"login"`
		Password   string  `json:"password"`
		CA         string  `json:"ca"`
		ClientCert string  `json:"clientCert"`
		ClientKey  string  `json:"clientKey"`
		KeyType    KeyType `json:"keyType"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	hasPassword := w.Login != "" || w.Password != ""
	hasCertificate := w.CA != "" || w.ClientCert != "" || w.ClientKey != ""
	switch {
	case hasPassword && hasCertificate:
		return errors.New("auth: cannot mix login/password with certificate fields")
	case hasPassword:
		if w.Login == "" || w.Password == "" {
			return errors.New("auth: login and password are both required")
		}
		a.Password = &PasswordAuth{Login: w.Login, Password: w.Password}
	case hasCertificate:
		if w.CA == "" || w.ClientCert == "" || w.ClientKey == "" {
			return errors.New("auth: ca, clientCert and clientKey are all required")
		}
		if w.KeyType == "" {
			w.KeyType = RSA
		}
		if w.KeyType != RSA && w.KeyType != ECC {
			return fmt.Errorf("auth: unknown keyType %q", w.KeyType)
		}
		a.Certificate = &CertificateAuth{
			CA:         w.CA,
			ClientCert: w.ClientCert,
			ClientKey:  w.ClientKey,
			KeyType:    w.KeyType,
		}
	default:
		return errors.New("auth: expected login/password or ca/clientCert/clientKey")
	}
	return nil
}
