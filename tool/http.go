package tool

import (
	"net/http"
	"time"
)

var (
	DefaultTimeout   = 10 * time.Second
	StatusHttpClient *http.Client
)

func init() {
	StatusHttpClient = NewHTTPClient()
}

// NewHTTPClient creates the HTTP client used for status polling.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: transport,
	}
}

func GetHttpClient() *http.Client {
	return StatusHttpClient
}
