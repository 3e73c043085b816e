// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package wsclient implements publisher.Publisher over a persistent
// WebSocket connection per peer, correlating requests to responses by
// message ID the way the teacher's agent transport does.
package wsclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sage-x-project/privault/payload"
	"github.com/sage-x-project/privault/publisher"
)

// PeerResolver maps a recipient public key to the WebSocket URL of the
// peer node that holds that recipient's private key material.
type PeerResolver interface {
	PeerURL(recipient payload.PublicKey) (string, bool)
}

// Client is a publisher.Publisher backed by one lazily-dialed
// WebSocket connection per peer URL.
type Client struct {
	resolver     PeerResolver
	dialTimeout  time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration

	mu    sync.Mutex
	conns map[string]*peerConn
}

type peerConn struct {
	mu   sync.Mutex
	conn *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan wireResponse
}

type wireRequest struct {
	ID        string `json:"id"`
	Payload   []byte `json:"payload"`
	Recipient string `json:"recipient"`
}

type wireResponse struct {
	ID      string `json:"id"`
	Ok      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// New creates a Client that resolves peer addresses via resolver.
func New(resolver PeerResolver) *Client {
	return &Client{
		resolver:     resolver,
		dialTimeout:  10 * time.Second,
		writeTimeout: 10 * time.Second,
		readTimeout:  30 * time.Second,
		conns:        make(map[string]*peerConn),
	}
}

// WithTimeouts overrides the dial/write/read timeouts. Zero values
// leave the existing timeout in place. Returns the receiver for
// chaining at construction time.
func (c *Client) WithTimeouts(dial, write, read time.Duration) *Client {
	if dial > 0 {
		c.dialTimeout = dial
	}
	if write > 0 {
		c.writeTimeout = write
	}
	if read > 0 {
		c.readTimeout = read
	}
	return c
}

// PublishPayload implements publisher.Publisher.
func (c *Client) PublishPayload(ctx context.Context, p *payload.EncodedPayload, recipient payload.PublicKey) error {
	url, ok := c.resolver.PeerURL(recipient)
	if !ok {
		return fmt.Errorf("%w: no peer address for recipient %s", publisher.ErrPublishFailed, recipient.Base64())
	}

	encoded, err := payload.Encode(p)
	if err != nil {
		return fmt.Errorf("%w: encode projection: %v", publisher.ErrPublishFailed, err)
	}

	pc, err := c.connFor(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: %v", publisher.ErrPublishFailed, err)
	}

	req := wireRequest{
		ID:        uuid.NewString(),
		Payload:   encoded,
		Recipient: base64.StdEncoding.EncodeToString(recipient),
	}

	respCh := make(chan wireResponse, 1)
	pc.pendingMu.Lock()
	pc.pending[req.ID] = respCh
	pc.pendingMu.Unlock()
	defer func() {
		pc.pendingMu.Lock()
		delete(pc.pending, req.ID)
		pc.pendingMu.Unlock()
	}()

	if err := pc.write(c.writeTimeout, req); err != nil {
		return fmt.Errorf("%w: %v", publisher.ErrPublishFailed, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", publisher.ErrPublishFailed, ctx.Err())
	case resp := <-respCh:
		if !resp.Ok {
			return fmt.Errorf("%w: peer rejected projection: %s", publisher.ErrPublishFailed, resp.Message)
		}
		return nil
	case <-time.After(c.readTimeout):
		return fmt.Errorf("%w: response timeout", publisher.ErrPublishFailed)
	}
}

func (c *Client) connFor(ctx context.Context, url string) (*peerConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pc, ok := c.conns[url]; ok {
		return pc, nil
	}

	dialer := &websocket.Dialer{HandshakeTimeout: c.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	pc := &peerConn{conn: conn, pending: make(map[string]chan wireResponse)}
	c.conns[url] = pc
	go pc.readLoop()
	return pc, nil
}

func (pc *peerConn) write(timeout time.Duration, req wireRequest) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if err := pc.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	return pc.conn.WriteJSON(req)
}

func (pc *peerConn) readLoop() {
	for {
		var resp wireResponse
		if err := pc.conn.ReadJSON(&resp); err != nil {
			return
		}
		pc.pendingMu.Lock()
		ch, ok := pc.pending[resp.ID]
		pc.pendingMu.Unlock()
		if ok {
			select {
			case ch <- resp:
			default:
			}
		}
	}
}

// Close closes every peer connection the client has opened.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pc := range c.conns {
		pc.conn.Close()
	}
	c.conns = make(map[string]*peerConn)
	return nil
}
