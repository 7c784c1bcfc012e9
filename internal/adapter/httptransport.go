// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package adapter

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPTransport is the default Transport, backed by net/http. It
// satisfies spec.md §6's assumed "generic request/response
// abstraction" collaborator; the spec places HTTP transport primitives
// out of the core's scope, so net/http is the correct stdlib fit here
// rather than a gap in the module's third-party stack.
type HTTPTransport struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPTransport builds an HTTPTransport with the given timeout.
func NewHTTPTransport(baseURL, apiKey string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Post issues a POST request with a JSON body and the headers required
// by spec.md §6.
func (t *HTTPTransport) Post(ctx context.Context, endpoint string, body []byte) (Response, error) {
	return t.do(ctx, http.MethodPost, endpoint, body)
}

// Get issues a GET request with the headers required by spec.md §6.
func (t *HTTPTransport) Get(ctx context.Context, endpoint string) (Response, error) {
	return t.do(ctx, http.MethodGet, endpoint, nil)
}

func (t *HTTPTransport) do(ctx context.Context, method, endpoint string, body []byte) (Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+endpoint, reader)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Authorization", t.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := t.Client.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	return Response{Status: resp.StatusCode, Body: respBody, Headers: resp.Header}, nil
}
