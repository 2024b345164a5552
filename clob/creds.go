// Copyright (c) 2025 BVK Chaitanya

package clob

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bvk/polytrade/wallet"
)

// DeriveCredentials recovers the api credentials previously created for the
// signer's wallet. The wallet proves ownership by signing an attestation
// payload.
func (c *Client) DeriveCredentials(ctx context.Context, signer wallet.Signer, nonce int64) (*Credentials, error) {
	headers, err := attestationHeaders(ctx, signer, DefaultChainID, nonce, c.opts.SigningTimeout)
	if err != nil {
		return nil, err
	}

	url := c.restURL("/auth/derive-api-key", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	creds := new(Credentials)
	if err := c.do(ctx, req, creds); err != nil {
		return nil, fmt.Errorf("could not derive api credentials: %w", err)
	}
	if err := creds.Check(); err != nil {
		return nil, err
	}
	return creds, nil
}

// CreateCredentials creates fresh api credentials for the signer's wallet.
// Use DeriveCredentials to recover credentials that already exist.
func (c *Client) CreateCredentials(ctx context.Context, signer wallet.Signer, nonce int64) (*Credentials, error) {
	headers, err := attestationHeaders(ctx, signer, DefaultChainID, nonce, c.opts.SigningTimeout)
	if err != nil {
		return nil, err
	}

	url := c.restURL("/auth/api-key", nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url.String(), nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	creds := new(Credentials)
	if err := c.do(ctx, req, creds); err != nil {
		return nil, fmt.Errorf("could not create api credentials: %w", err)
	}
	if err := creds.Check(); err != nil {
		return nil, err
	}
	return creds, nil
}
