package searchproxy

import "net/http"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type clientConfig struct {
	httpClient *http.Client
	apiKey     string
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) { c.httpClient = hc })
}

// WithAPIKey sets the Bearer token sent with every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) { c.apiKey = key })
}
