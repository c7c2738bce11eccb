package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultConfig = `# Osmium HTTP/2 Server Configuration File

server:
  port: 8443
  # Body served for every request. Empty serves the built-in hello page.
  content: ""
  content_type: text/html
  # Minify HTML/CSS/JS content before serving.
  minify: false
  # Compress response bodies when the client accepts it.
  # Options: none, zstd, gzip, deflate
  encoding: none

tls:
  # TLS with ALPN "h2" is enabled when both files are set.
  # Generate a pair with: osmium cert generate <host>
  cert_file: ""
  key_file: ""
  # Answer plain HTTP on port 80 with a redirect to the TLS listener.
  redirect_http: true

http2:
  # Seconds each blocking read may take. 0 disables the deadline.
  read_timeout: 30
  # Advertised in the server's SETTINGS frame when greater than 0.
  max_concurrent_streams: 0
  initial_window_size: 0
  # Log every frame the engine processes.
  verbose_frames: false

logging:
  access_log: osmium.log
`

var config *Config
var configMap *map[string]interface{}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	TLS     TLSConfig     `yaml:"tls"`
	HTTP2   HTTP2Config   `yaml:"http2"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	Content     string `yaml:"content"`
	ContentType string `yaml:"content_type"`
	Minify      bool   `yaml:"minify"`
	Encoding    string `yaml:"encoding"`
}

type TLSConfig struct {
	CertFile     string `yaml:"cert_file"`
	KeyFile      string `yaml:"key_file"`
	RedirectHTTP bool   `yaml:"redirect_http"`
}

type HTTP2Config struct {
	ReadTimeout          int  `yaml:"read_timeout"`
	MaxConcurrentStreams int  `yaml:"max_concurrent_streams"`
	InitialWindowSize    int  `yaml:"initial_window_size"`
	VerboseFrames        bool `yaml:"verbose_frames"`
}

type LoggingConfig struct {
	AccessLog string `yaml:"access_log"`
}

func CreateDefaultConfig() error {
	path := GetConfigPath()
	if _, err := os.Stat(GetDataDirectory()); os.IsNotExist(err) {
		err := os.MkdirAll(GetDataDirectory(), 0755)
		if err != nil {
			return fmt.Errorf("failed to create data directory: %v", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		// Config file already exists, do nothing
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create default config file: %v", err)
	}
	defer f.Close()
	_, err = f.WriteString(DefaultConfig)
	if err != nil {
		return fmt.Errorf("failed to write default config file: %v", err)
	}

	return nil
}

func GetConfigPath() string {
	return GetDataDirectory() + string(os.PathSeparator) + "config.yaml"
}

func GetConfig() (Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err := CreateDefaultConfig()
			if err != nil {
				return Config{}, fmt.Errorf("failed to create default config file: %v", err)
			}
			return GetConfig()
		}
		return Config{}, fmt.Errorf("failed to read config file: %v", err)
	}

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %v", err)
	}

	var confMap map[string]interface{}
	err = yaml.Unmarshal(data, &confMap)
	if err != nil {
		return *config, fmt.Errorf("failed to parse config file into map: %v", err)
	}
	configMap = &confMap

	return *config, nil
}

func GetConfigValue(key string, def interface{}) interface{} {
	if configMap == nil {
		if _, err := GetConfig(); err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return def
		}
	}
	if val, ok := (*configMap)[key]; ok {
		return val
	}
	if strings.Contains(key, ".") {
		parts := strings.Split(key, ".")
		curr := configMap
		for i, part := range parts {
			if v, ok := (*curr)[part]; ok {
				if i == len(parts)-1 {
					return v
				}
				if nextMap, ok := v.(map[string]interface{}); ok {
					curr = &nextMap
				} else {
					return def
				}
			} else {
				return def
			}
		}
	}
	return def
}

// ValidateConfig checks the parts of the configuration that would otherwise
// only fail once a client connects.
func ValidateConfig(conf Config) error {
	if conf.Server.Port < 1 || conf.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", conf.Server.Port)
	}
	switch conf.Server.Encoding {
	case "", "none", "gzip", "zstd", "deflate":
	default:
		return fmt.Errorf("server.encoding %q is not one of none, gzip, zstd, deflate", conf.Server.Encoding)
	}
	if (conf.TLS.CertFile == "") != (conf.TLS.KeyFile == "") {
		return errors.New("tls.cert_file and tls.key_file must be set together")
	}
	if conf.TLS.CertFile != "" {
		if _, err := os.Stat(conf.TLS.CertFile); err != nil {
			return fmt.Errorf("tls.cert_file: %v", err)
		}
		if _, err := os.Stat(conf.TLS.KeyFile); err != nil {
			return fmt.Errorf("tls.key_file: %v", err)
		}
	}
	if conf.HTTP2.ReadTimeout < 0 {
		return fmt.Errorf("http2.read_timeout %d cannot be negative", conf.HTTP2.ReadTimeout)
	}
	if conf.HTTP2.MaxConcurrentStreams < 0 || conf.HTTP2.InitialWindowSize < 0 {
		return errors.New("http2 settings cannot be negative")
	}
	if conf.HTTP2.InitialWindowSize > 1<<31-1 {
		return fmt.Errorf("http2.initial_window_size %d exceeds 2^31-1", conf.HTTP2.InitialWindowSize)
	}
	return nil
}
