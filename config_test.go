package main

import (
	"os"
	"testing"
)

// resetConfig points the data directory at a fresh temp dir and clears the
// package-level config cache.
func resetConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	config = nil
	configMap = nil
}

func TestGetConfigCreatesDefault(t *testing.T) {
	resetConfig(t)

	conf, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if _, err := os.Stat(GetConfigPath()); err != nil {
		t.Fatalf("default config file missing: %v", err)
	}
	if conf.Server.Port != 8443 {
		t.Errorf("server.port = %d, want 8443", conf.Server.Port)
	}
	if conf.Server.Encoding != "none" {
		t.Errorf("server.encoding = %q, want none", conf.Server.Encoding)
	}
	if !conf.TLS.RedirectHTTP {
		t.Error("tls.redirect_http = false, want true")
	}
	if conf.HTTP2.ReadTimeout != 30 {
		t.Errorf("http2.read_timeout = %d, want 30", conf.HTTP2.ReadTimeout)
	}
	if conf.Logging.AccessLog != "osmium.log" {
		t.Errorf("logging.access_log = %q, want osmium.log", conf.Logging.AccessLog)
	}
}

func TestGetConfigReadsExisting(t *testing.T) {
	resetConfig(t)

	if err := os.MkdirAll(GetDataDirectory(), 0755); err != nil {
		t.Fatalf("creating data dir: %v", err)
	}
	custom := `server:
  port: 9000
  content: "<h1>hi</h1>"
http2:
  read_timeout: 5
  verbose_frames: true
`
	if err := os.WriteFile(GetConfigPath(), []byte(custom), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	conf, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if conf.Server.Port != 9000 {
		t.Errorf("server.port = %d, want 9000", conf.Server.Port)
	}
	if conf.Server.Content != "<h1>hi</h1>" {
		t.Errorf("server.content = %q", conf.Server.Content)
	}
	if conf.HTTP2.ReadTimeout != 5 {
		t.Errorf("http2.read_timeout = %d, want 5", conf.HTTP2.ReadTimeout)
	}
	if !conf.HTTP2.VerboseFrames {
		t.Error("http2.verbose_frames = false, want true")
	}
}

func TestGetConfigValue(t *testing.T) {
	resetConfig(t)

	// the first lookup loads (and here creates) the config lazily
	if got := GetConfigValue("server.port", 0).(int); got != 8443 {
		t.Errorf("server.port = %d, want 8443", got)
	}
	if got := GetConfigValue("tls.redirect_http", false).(bool); !got {
		t.Error("tls.redirect_http = false, want true")
	}
	if got := GetConfigValue("tls.cert_file", "fallback").(string); got != "" {
		t.Errorf("tls.cert_file = %q, want empty from the default config", got)
	}
	if got := GetConfigValue("no.such.key", "fallback").(string); got != "fallback" {
		t.Errorf("missing key = %q, want fallback", got)
	}
	if got := GetConfigValue("server", "fallback"); got == "fallback" {
		t.Error("section lookup fell back, want the mapping itself")
	}
}

func TestValidateConfig(t *testing.T) {
	resetConfig(t)
	valid, err := GetConfig()
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if err := ValidateConfig(valid); err != nil {
		t.Fatalf("ValidateConfig(default) = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown encoding", func(c *Config) { c.Server.Encoding = "brotli" }},
		{"cert without key", func(c *Config) { c.TLS.CertFile = "cert.pem" }},
		{"missing cert file", func(c *Config) {
			c.TLS.CertFile = "/does/not/exist.crt"
			c.TLS.KeyFile = "/does/not/exist.key"
		}},
		{"negative read timeout", func(c *Config) { c.HTTP2.ReadTimeout = -1 }},
		{"negative window", func(c *Config) { c.HTTP2.InitialWindowSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := valid
			tt.mutate(&conf)
			if err := ValidateConfig(conf); err == nil {
				t.Error("ValidateConfig = nil, want error")
			}
		})
	}
}
