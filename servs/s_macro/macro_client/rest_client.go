package macro_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rskv-p/srtmacro/servs/s_macro/macro_api"
	"github.com/rskv-p/srtmacro/servs/s_macro/macro_serv"
)

// RESTClient talks to a running control panel.
type RESTClient struct {
	BaseURL string       // panel root, e.g. http://127.0.0.1:8000
	Token   string       // JWT from Login, sent as a bearer token
	Client  *http.Client // HTTP client for making requests
}

// NewRESTClient creates a new REST client with the provided base URL.
func NewRESTClient(baseURL, token string) *RESTClient {
	return &RESTClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{},
	}
}

var _ macro_api.IMacro = (*RESTClient)(nil)

func (c *RESTClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return resp.StatusCode, fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s %s: %s: %w", method, path, resp.Status, err)
	}
	return resp.StatusCode, nil
}

// Login exchanges operator credentials for a token and keeps it.
func (c *RESTClient) Login(ctx context.Context, username, password string) (string, error) {
	var out macro_api.LoginResponse
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", macro_api.LoginRequest{Username: username, Password: password}, &out); err != nil {
		return "", err
	}
	c.Token = out.Token
	return out.Token, nil
}

func (c *RESTClient) Start(ctx context.Context, p macro_serv.Params) error {
	var out macro_api.ActionResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/start", p, &out); err != nil {
		return err
	}
	return out.Err()
}

func (c *RESTClient) Stop(ctx context.Context) error {
	var out macro_api.ActionResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/stop", nil, &out); err != nil {
		return err
	}
	return out.Err()
}

func (c *RESTClient) Status(ctx context.Context) (macro_serv.Status, error) {
	var st macro_serv.Status
	_, err := c.do(ctx, http.MethodGet, "/api/status", nil, &st)
	return st, err
}

func (c *RESTClient) Logs(ctx context.Context) (macro_api.LogsResponse, error) {
	var out macro_api.LogsResponse
	_, err := c.do(ctx, http.MethodGet, "/logs.json", nil, &out)
	return out, err
}

// EnvCheck reports which credentials the server has.
func (c *RESTClient) EnvCheck(ctx context.Context) (macro_api.EnvCheckResponse, error) {
	var out macro_api.EnvCheckResponse
	_, err := c.do(ctx, http.MethodGet, "/env/check", nil, &out)
	return out, err
}

// EnvSave stores credentials on the server.
func (c *RESTClient) EnvSave(ctx context.Context, req macro_api.EnvSaveRequest) error {
	var out macro_api.ActionResponse
	if _, err := c.do(ctx, http.MethodPost, "/env/save", req, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("env save: %s", out.Message)
	}
	return nil
}
