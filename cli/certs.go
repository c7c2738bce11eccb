package cli

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// GenerateSelfSignedCert writes a one-year self-signed ECDSA P-256
// certificate and key for host into dir as <host>.crt and <host>.key,
// returning both in PEM form.
func GenerateSelfSignedCert(host, dir string) (certPEM []byte, keyPEM []byte, err error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key: %v", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate directory: %v", err)
	}

	certPath := filepath.Join(dir, host+".crt")
	keyPath := filepath.Join(dir, host+".key")
	template := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: host},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{host},
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate: %v", err)
	}
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})

	b, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %v", err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: b})

	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return nil, nil, fmt.Errorf("failed to write %s: %v", certPath, err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return nil, nil, fmt.Errorf("failed to write %s: %v", keyPath, err)
	}

	fmt.Printf("✅ Generated self-signed cert: %s and %s\n", certPath, keyPath)
	return certPEM, keyPEM, nil
}

// GenerateACMECert provisions a certificate for domain through Let's
// Encrypt, answering the HTTP-01 challenge on port 80, and writes the
// result into dir as <domain>.crt and <domain>.key.
func GenerateACMECert(domain, dir string) (certPEM []byte, keyPEM []byte, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create certificate directory: %v", err)
	}
	m := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(filepath.Join(dir, "acme-cache")),
		HostPolicy: autocert.HostWhitelist(domain),
	}

	// ACME HTTP-01 challenges arrive on port 80 while GetCertificate runs
	challengeHandler := m.HTTPHandler(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/acme-challenge/", func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, "/.well-known/acme-challenge/")
		fmt.Printf("[ACME] Challenge requested: token=%s\n", token)
		challengeHandler.ServeHTTP(w, r)
	})
	srv := &http.Server{Addr: ":80", Handler: mux}
	go srv.ListenAndServe()
	defer srv.Close()
	fmt.Println("Started HTTP server on port 80 for the ACME challenge.\nIf you are running this behind Docker, ensure port 80 is exposed.\nIf you are using a firewall, ensure port 80 is open.")

	cert, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: domain})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to obtain certificate: %v", err)
	}

	for _, der := range cert.Certificate {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	key, ok := cert.PrivateKey.(*ecdsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("unexpected private key type %T", cert.PrivateKey)
	}
	b, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %v", err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: b})

	certFile := filepath.Join(dir, domain+".crt")
	keyFile := filepath.Join(dir, domain+".key")
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		return nil, nil, fmt.Errorf("failed to write %s: %v", certFile, err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		return nil, nil, fmt.Errorf("failed to write %s: %v", keyFile, err)
	}

	fmt.Printf("✅ Obtained TLS certificate: %s and %s\n", certFile, keyFile)
	return certPEM, keyPEM, nil
}
