package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dsuploader/internal/common"
	"github.com/dmitrijs2005/dsuploader/internal/netx"
)

const (
	PreparePath = "/api/datasets/upload/prepare"
	ChunkPath   = "/api/datasets/upload/chunk"
	CancelPath  = "/api/datasets/upload/cancel"

	errorBodyLimit = 512
)

// HTTPClient talks to the dataset upload endpoints over HTTP.
//
// The underlying http.Client has no timeout: a request that hangs blocks
// its caller until the caller's context is cancelled.
type HTTPClient struct {
	baseURL     *url.URL
	accessToken string
	http        *http.Client
}

// NewDatasetUploadClient returns a client for the server at baseURL. An
// empty accessToken sends no Authorization header.
func NewDatasetUploadClient(baseURL, accessToken string) (*HTTPClient, error) {
	return NewDatasetUploadClientWithHTTP(baseURL, accessToken, &http.Client{})
}

// NewDatasetUploadClientWithHTTP is NewDatasetUploadClient with a caller
// supplied http.Client.
func NewDatasetUploadClientWithHTTP(baseURL, accessToken string, hc *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}
	return &HTTPClient{baseURL: u, accessToken: accessToken, http: hc}, nil
}

func (c *HTTPClient) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func (c *HTTPClient) newRequest(ctx context.Context, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", common.UserAgent)
	if c.accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+c.accessToken)
	}
	return req, nil
}

func (c *HTTPClient) postJSON(ctx context.Context, path string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := c.newRequest(ctx, path, bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapError(err)
	}
	defer resp.Body.Close()

	if err := c.mapStatus(resp); err != nil {
		return err
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}

func (c *HTTPClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	// keeps context.Canceled matchable through *url.Error
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func (c *HTTPClient) mapStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body := netx.ReadErrorBody(resp.Body, errorBodyLimit)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	default:
		return fmt.Errorf("%w: %s; body: %s", ErrServer, resp.Status, body)
	}
}

func (c *HTTPClient) Negotiate(ctx context.Context, req NegotiateRequest) (string, error) {
	if err := checkToken(c.accessToken); err != nil {
		return "", err
	}

	var resp negotiateResponse
	if err := c.postJSON(ctx, PreparePath, req, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("%w: empty sessionId", ErrBadResponse)
	}
	return resp.SessionID, nil
}

func (c *HTTPClient) SendChunk(ctx context.Context, req ChunkRequest, onProgress ProgressFunc) error {
	fields := []netx.Field{
		{Name: "reqId", Value: req.SessionID},
		{Name: "fileNo", Value: strconv.Itoa(req.FileNo)},
		{Name: "chunkNo", Value: strconv.Itoa(req.ChunkNo)},
		{Name: "fileName", Value: req.FileName},
		{Name: "fileSize", Value: strconv.FormatInt(req.FileSize, 10)},
		{Name: "totalChunkNum", Value: strconv.Itoa(req.TotalChunkNum)},
		{Name: "checkSumHex", Value: req.CheckSumHex},
	}
	file := netx.FilePart{
		FieldName:   "file",
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Data:        req.Data,
	}

	body, err := netx.NewMultipartBody(fields, file, onProgress)
	if err != nil {
		return err
	}

	httpReq, err := c.newRequest(ctx, ChunkPath, body.Reader, body.ContentType)
	if err != nil {
		return err
	}
	httpReq.ContentLength = body.ContentLength

	return c.do(httpReq, nil)
}

func (c *HTTPClient) Release(ctx context.Context, sessionID string) error {
	return c.postJSON(ctx, CancelPath, releaseRequest{SessionID: sessionID}, nil)
}
