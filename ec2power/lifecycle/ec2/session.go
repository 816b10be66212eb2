package lifecycle_ec2

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/mulgadc/ec2power/ec2power/config"
	"golang.org/x/net/http2"
)

// NewSession builds an AWS session from cfg. Credentials come from the
// ambient chain unless both static keys are configured. A custom endpoint
// gets its own HTTP/2 capable client so self-signed gateways can be trusted
// through CABundle or Insecure.
func NewSession(cfg *config.Config) (*session.Session, error) {
	awsCfg := aws.Config{}

	if cfg.Region != "" {
		awsCfg.Region = aws.String(cfg.Region)
	}

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	if cfg.Endpoint != "" {
		httpClient, err := newHTTPClient(cfg)
		if err != nil {
			return nil, err
		}
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.HTTPClient = httpClient
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            awsCfg,
		Profile:           cfg.Profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return sess, nil
}

// NewClient returns an EC2 client for cfg
func NewClient(cfg *config.Config) (*ec2.EC2, error) {
	sess, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return ec2.New(sess), nil
}

func newHTTPClient(cfg *config.Config) (*http.Client, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if cfg.Insecure {
		tlsConfig.InsecureSkipVerify = true
	} else if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", cfg.CABundle)
		}
		tlsConfig.RootCAs = pool
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     tlsConfig,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		slog.Warn("Failed to configure HTTP/2", "error", err)
	}

	return &http.Client{Transport: tr}, nil
}
