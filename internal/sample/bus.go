// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package sample

import (
	"log/slog"
	"sync"
)

// SampleFunc receives one published sample.
type SampleFunc func(Sample)

// ErrorFunc receives one published error message.
type ErrorFunc func(string)

// Bus is a typed publish/subscribe point. Subscribers are invoked on
// the publisher's goroutine (the scheduler's worker); a panicking
// subscriber is recovered and logged without affecting its siblings or
// the publisher, following the callback-registration idiom in
// other_examples/hootrhino-gomodbus's RegisterStream.
type Bus struct {
	mu             sync.Mutex
	sampleHandlers []SampleFunc
	errorHandlers  []ErrorFunc
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// SubscribeSample registers fn to receive every published sample.
func (b *Bus) SubscribeSample(fn SampleFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sampleHandlers = append(b.sampleHandlers, fn)
}

// SubscribeError registers fn to receive every published error message.
func (b *Bus) SubscribeError(fn ErrorFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errorHandlers = append(b.errorHandlers, fn)
}

// Publish fans s out to every sample subscriber.
func (b *Bus) Publish(s Sample) {
	b.mu.Lock()
	handlers := make([]SampleFunc, len(b.sampleHandlers))
	copy(handlers, b.sampleHandlers)
	b.mu.Unlock()

	for _, fn := range handlers {
		invokeSample(fn, s)
	}
}

// PublishError fans msg out to every error subscriber.
func (b *Bus) PublishError(msg string) {
	b.mu.Lock()
	handlers := make([]ErrorFunc, len(b.errorHandlers))
	copy(handlers, b.errorHandlers)
	b.mu.Unlock()

	for _, fn := range handlers {
		invokeError(fn, msg)
	}
}

func invokeSample(fn SampleFunc, s Sample) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("sample subscriber panicked", "recover", r)
		}
	}()
	fn(s)
}

func invokeError(fn ErrorFunc, msg string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("error subscriber panicked", "recover", r)
		}
	}()
	fn(msg)
}
