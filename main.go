package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"osmium/cli"
	"osmium/http2"
)

const VERSION = "1.0.0"

// handleConnection runs the HTTP/2 engine over one accepted socket. Each
// connection gets its own goroutine and shares nothing with the others. For
// TLS sockets the ALPN result must be "h2"; anything else never reaches the
// engine.
func handleConnection(conn net.Conn, conf Config, handler http2.Handler) {
	remote := conn.RemoteAddr().String()

	if tlsConn, ok := conn.(*tls.Conn); ok {
		if err := tlsConn.Handshake(); err != nil {
			ErrorLog(err)
			conn.Close()
			return
		}
		alpn := tlsConn.ConnectionState().NegotiatedProtocol
		if alpn != "h2" {
			ErrorLog(fmt.Errorf("client %s negotiated %q instead of h2", remote, alpn))
			conn.Close()
			return
		}
	}

	opts := http2.Options{
		Handler: func(req *http2.Request) *http2.Response {
			RequestLog(req.Method, req.Path, "HTTP/2.0", remote)
			return handler(req)
		},
		MaxConcurrentStreams: uint32(conf.HTTP2.MaxConcurrentStreams),
		InitialWindowSize:    uint32(conf.HTTP2.InitialWindowSize),
		ReadTimeout:          time.Duration(conf.HTTP2.ReadTimeout) * time.Second,
		VerboseFrames:        conf.HTTP2.VerboseFrames,
	}
	if err := http2.NewConn(conn, opts).Serve(); err != nil {
		ErrorLog(fmt.Errorf("connection %s: %w", remote, err))
	}
}

// BuildHandler turns the configured content into the engine's request
// handler. Minification runs once, here; content encoding is negotiated per
// request against the client's accept-encoding header.
func BuildHandler(conf Config) http2.Handler {
	body := conf.Server.Content
	contentType := conf.Server.ContentType
	if contentType == "" {
		contentType = "text/html"
	}
	if body == "" {
		body = "Hello, world!"
		contentType = "text/plain; charset=utf-8"
	} else if conf.Server.Minify {
		body = MinifyContent(body, contentType)
	}

	encoding := conf.Server.Encoding
	switch encoding {
	case "gzip", "zstd", "deflate":
	default:
		encoding = ""
	}

	return func(req *http2.Request) *http2.Response {
		resp := &http2.Response{
			Status: 200,
			Headers: map[string]string{
				"content-type": contentType,
				"server":       "Osmium/" + VERSION,
			},
			Body: []byte(body),
		}
		if encoding != "" && NegotiateEncoding(req.Headers["accept-encoding"], encoding) {
			data, err := CompressData(resp.Body, encoding)
			if err != nil {
				ErrorLog(err)
				return resp
			}
			resp.Body = data
			resp.Headers["content-encoding"] = encoding
		}
		return resp
	}
}

// StartListener opens the serving socket. With cert_file and key_file both
// configured the listener terminates TLS and advertises h2 through ALPN;
// otherwise it serves cleartext HTTP/2 (clients need prior knowledge, the
// way curl --http2-prior-knowledge connects).
func StartListener() (net.Listener, error) {
	port := GetConfigValue("server.port", 8443).(int)
	tlsCertFile := GetConfigValue("tls.cert_file", "").(string)
	tlsKeyFile := GetConfigValue("tls.key_file", "").(string)
	addr := ":" + strconv.Itoa(port)

	if tlsCertFile != "" && tlsKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(tlsCertFile, tlsKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
			NextProtos:   []string{"h2"},
		}
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, err
		}
		if GetConfigValue("tls.redirect_http", true).(bool) {
			go StartHTTPSRedirector(port)
		}
		tlsListener := tls.NewListener(listener, tlsConfig)
		println("Osmium is running on port", port, "(TLS, ALPN h2)")
		return tlsListener, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	println("Osmium is running on port", port, "(h2c)")
	return listener, nil
}

func main() {
	if len(os.Args) > 1 {
		if os.Args[1] == "--version" || os.Args[1] == "-v" {
			fmt.Printf("Osmium version %s\n", VERSION)
			return
		} else if os.Args[1] == "--help" || os.Args[1] == "-h" {
			fmt.Println("Usage: osmium [options]")
			fmt.Println("")
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Show version information")
			fmt.Println("  --help, -h       Show this help message")
			fmt.Println("  validate         Validate the configuration file")
			fmt.Println("  cert generate <host>   Generate a self-signed TLS certificate for the specified host")
			fmt.Println("  cert obtain <host>     Obtain a TLS certificate from Let's Encrypt for the specified host")
			return
		} else if os.Args[1] == "validate" {
			println("Validating configuration...")
			configPath := GetConfigPath()
			if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
				println("Configuration file does not exist. Did you run Osmium at least once?")
				return
			}
			conf, err := GetConfig()
			if err != nil {
				println("Configuration is invalid:", err.Error())
				return
			}
			if err := ValidateConfig(conf); err != nil {
				println("Configuration is invalid:", err.Error())
				return
			}
			println("Configuration OK:", configPath)
			return
		} else if os.Args[1] == "cert" {
			if len(os.Args) < 3 {
				println("Please specify 'generate' or 'obtain'. Example: osmium cert generate example.com")
				return
			}
			if os.Args[2] == "generate" {
				if len(os.Args) < 4 {
					println("Please specify a host. Example: osmium cert generate example.com")
					return
				}
				_, _, err := cli.GenerateSelfSignedCert(os.Args[3], GetDataDirectory())
				if err != nil {
					println("Failed to generate self-signed certificate:", err.Error())
				}
				return
			} else if os.Args[2] == "obtain" {
				if len(os.Args) < 4 {
					println("Please specify a domain. Example: osmium cert obtain example.com")
					return
				}
				fmt.Println("Obtaining TLS certificate using Let's Encrypt...")
				_, _, err := cli.GenerateACMECert(os.Args[3], GetDataDirectory())
				if err != nil {
					println("Failed to obtain TLS certificate:", err.Error())
				}
				return
			}
			println("Unknown cert command:", os.Args[2])
			return
		}
		println("Unknown argument:", os.Args[1])
		return
	}

	conf, err := GetConfig()
	if err != nil {
		println("Failed to load configuration:", err.Error())
		return
	}
	if conf.Logging.AccessLog != "" {
		LOG_FILE = conf.Logging.AccessLog
	}
	handler := BuildHandler(conf)

	listener, err := StartListener()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			println("Network is closed")
		} else {
			println("Error occurred:", err.Error())
		}
		return
	}
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				println("Listener has been closed")
				break
			}
			println("Error accepting connection:", err.Error())
			continue
		}
		go handleConnection(conn, conf, handler)
	}
}
