package client

import (
	"net/http"
	"strings"
	"time"
)

type LoginCredentials struct {
	Username string
	Password string
}

type ApiConnectionDetails struct {
	JobDashUrl string
	BasicAuth  LoginCredentials
	// Timeout of a single request; retries of idempotent requests each get their own.
	Timeout time.Duration
	// Attempts made for idempotent requests before giving up.
	RetryAttempts uint
}

type ConnectionDetails func() *ApiConnectionDetails

func CreateApiConnection(config *ApiConnectionDetails) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	attempts := config.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	return &Client{
		baseUrl:       strings.TrimSuffix(config.JobDashUrl, "/") + apiBasePath,
		credentials:   config.BasicAuth,
		retryAttempts: attempts,
		http:          &http.Client{Timeout: timeout},
	}
}

func WithJobClient(getConnectionDetails ConnectionDetails, action func(*Client) error) error {
	client := CreateApiConnection(getConnectionDetails())
	defer client.http.CloseIdleConnections()
	return action(client)
}
