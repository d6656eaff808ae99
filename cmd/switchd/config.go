package main

import (
	"errors"

	"github.com/dlintw/goconf"
)

// Config holds switchd's own settings, read from the goconf-format file
// named by the -config flag (spec's ambient configuration layer,
// grounded on the teacher's goconf-backed Config).
type Config struct {
	conf *goconf.ConfigFile

	// ControlPort is the TCP port the control-channel listener binds
	// (spec §4.6).
	ControlPort int
	// AdminSecret gates every non-OPENFLOW control-channel operation
	// (spec §4.7).
	AdminSecret string
	LogLevel    string

	RestPort int
	RestTLSCert string
	RestTLSKey  string
}

func NewConfig() *Config {
	return &Config{}
}

func (c *Config) Read(path string) error {
	conf, err := goconf.ReadConfigFile(path)
	if err != nil {
		return err
	}
	c.conf = conf
	return c.readDefaultConfig(conf)
}

func (c *Config) RawConfig() *goconf.ConfigFile {
	return c.conf
}

func (c *Config) readDefaultConfig(conf *goconf.ConfigFile) error {
	var err error

	c.ControlPort, err = conf.GetInt("default", "control_port")
	if err != nil || c.ControlPort <= 0 || c.ControlPort > 0xFFFF {
		return errors.New("invalid control_port config")
	}

	c.AdminSecret, err = conf.GetString("default", "admin_secret")
	if err != nil || len(c.AdminSecret) == 0 {
		return errors.New("empty admin_secret config")
	}

	c.LogLevel, err = conf.GetString("default", "log_level")
	if err != nil || len(c.LogLevel) == 0 {
		c.LogLevel = "info"
	}

	c.RestPort, err = conf.GetInt("rest", "port")
	if err != nil || c.RestPort <= 0 || c.RestPort > 0xFFFF {
		return errors.New("invalid rest.port config")
	}
	// TLS is optional: a missing cert/key pair just serves plain HTTP.
	c.RestTLSCert, _ = conf.GetString("rest", "cert_file")
	c.RestTLSKey, _ = conf.GetString("rest", "key_file")

	return nil
}
