// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package adapter

import "context"

// Response is the transport-agnostic result of one HTTP exchange.
type Response struct {
	Status  int
	Body    []byte
	Headers map[string][]string
}

// Transport is the assumed external collaborator from spec.md §6: a
// generic request/response abstraction over HTTP. The core adapter
// depends only on this interface; internal/adapter/httptransport.go
// provides the net/http-backed implementation used in production.
type Transport interface {
	Post(ctx context.Context, endpoint string, body []byte) (Response, error)
	Get(ctx context.Context, endpoint string) (Response, error)
}
