// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package sentry

import (
	"context"
	"fmt"
)

// FallbackPolicy decides which latest-event failures fall back to the
// events list.
type FallbackPolicy int

const (
	// FallbackAny falls back on every error.
	FallbackAny FallbackPolicy = iota
	// FallbackNotFound falls back only on 404; other errors propagate.
	FallbackNotFound
)

// ParseFallbackPolicy maps a settings value to a policy. The empty string
// selects FallbackAny.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch s {
	case "", "any":
		return FallbackAny, nil
	case "not_found":
		return FallbackNotFound, nil
	}
	return 0, fmt.Errorf("unknown event fallback %q (want any or not_found)", s)
}

func (p FallbackPolicy) String() string {
	if p == FallbackNotFound {
		return "not_found"
	}
	return "any"
}

// EventSource records where a resolved event came from.
type EventSource int

const (
	SourceNone EventSource = iota
	SourceLatest
	SourceList
)

func (s EventSource) String() string {
	switch s {
	case SourceLatest:
		return "latest"
	case SourceList:
		return "list"
	}
	return "none"
}

// ResolveEvent returns the most recent event of an issue. It tries the
// latest-event endpoint first; when that fails and the policy allows it, the
// first element of the events list is used instead. An empty list yields a
// nil event with SourceNone and no error.
func (c *Client) ResolveEvent(ctx context.Context, id string, policy FallbackPolicy) (*Event, EventSource, error) {
	event, err := c.FetchLatestEvent(ctx, id)
	if err == nil {
		return event, SourceLatest, nil
	}
	if ctx.Err() != nil {
		return nil, SourceNone, err
	}
	if policy == FallbackNotFound && !IsNotFound(err) {
		return nil, SourceNone, err
	}
	c.logger.Warn("latest event unavailable, falling back to events list", "issue", id, "err", err)

	events, err := c.FetchEvents(ctx, id)
	if err != nil {
		return nil, SourceNone, err
	}
	if len(events) == 0 || events[0] == nil {
		return nil, SourceNone, nil
	}
	return events[0], SourceList, nil
}
