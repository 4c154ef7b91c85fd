package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

const authorizerPingTimeout = 1500 * time.Millisecond

var defaultPorts = map[string]string{
	"http":     "80",
	"https":    "443",
	"mysql":    "3306",
	"postgres": "5432",
}

// DialAddress returns the host:port of a service URL. A missing port is taken from the scheme.
func DialAddress(serviceURL string) (string, error) {
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", serviceURL)
	}

	port := parsed.Port()
	if port == "" {
		var ok bool
		if port, ok = defaultPorts[parsed.Scheme]; !ok {
			port = "80"
		}
	}
	return net.JoinHostPort(parsed.Hostname(), port), nil
}

// PingService opens and closes one TCP connection to the service
func PingService(ctx context.Context, serviceURL string, timeout time.Duration) error {
	address, err := DialAddress(serviceURL)
	if err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn.Close()
}

// PingAuthorizer checks if the Authorizer service is reachable
func PingAuthorizer(authzURL string) error {
	return PingService(context.Background(), authzURL, authorizerPingTimeout)
}
