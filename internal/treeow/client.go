package treeow

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Vendor API endpoints, relative to the configured base URL.
const (
	pathLogin        = "/api/user/account/login"
	pathRefreshToken = "/api/user/account/refresh/token"
	pathVerifyToken  = "/api/msg/unread/count"
	pathHomeList     = "/api/resource/home/list"
	pathDeviceList   = "/api/resource/v3/device/list/page"
	pathDeviceInfo   = "/api/resource/device/info"
	pathDeviceProp   = "/api/v3/device/otap/prop"
)

// Fallback client versions used when the version lookups fail. The cloud
// fingerprints the official iOS app, so the user-agent must stay plausible.
const (
	defaultAppVersion = "1.1.8"
	defaultIOSVersion = "18.5"
)

const terminalName = "iPhone"

// Logger defines the logging interface used by this package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the vendor cloud host. Default: the production host.
	BaseURL string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// AppVersionURL and IOSVersionURL are the version lookup endpoints
	// used to build a plausible user-agent. Empty disables the lookup
	// and the fallback versions are used.
	AppVersionURL string
	IOSVersionURL string

	// PageSize is the device list page size. Default: 50.
	PageSize int

	// CacheTTL bounds the home-group cache. Default: 1 hour.
	CacheTTL time.Duration
}

// Token is a set of bearer tokens issued by the vendor cloud.
// ExpiresAt is an absolute unix timestamp in seconds.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// Client is an authorized HTTP session against the Treeow cloud.
//
// The access token and client versions are mutable: headers are composed
// from the current values on every request, so a token rotated mid-flight
// takes effect on the next call without rebuilding the client.
//
// All methods are safe for concurrent use.
type Client struct {
	http   *http.Client
	cfg    Config
	logger Logger

	mu          sync.RWMutex
	accessToken string
	appVersion  string
	iosVersion  string

	groupsMu sync.Mutex
	groups   []string
	groupsAt time.Time

	now func() time.Time
}

// NewClient creates a client for the given cloud host. The access token may
// be empty until the first login.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://eziotes.treeow.com.cn"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     noopLogger{},
		appVersion: defaultAppVersion,
		iosVersion: defaultIOSVersion,
		now:        time.Now,
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// SetAccessToken installs a new access token. Subsequent requests carry it.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Login authenticates with account credentials and returns fresh tokens.
//
// The terminal identifier is derived deterministically from the account so
// the cloud sees one stable "device" per account across restarts. The
// password crosses the wire as its MD5 hex digest, never in the clear.
func (c *Client) Login(ctx context.Context, account, password string) (Token, error) {
	sum := md5.Sum([]byte(password))
	payload := map[string]string{
		"terminalIdentifier": strings.ToUpper(uuid.NewSHA1(uuid.NameSpaceDNS, []byte(account)).String()),
		"account":            account,
		"password":           hex.EncodeToString(sum[:]),
		"terminalName":       terminalName,
	}

	body, _, err := c.request(ctx, http.MethodPost, pathLogin, payload, nil, false)
	if err != nil {
		return Token{}, authError("login", err)
	}
	return c.tokenFromResponse(body)
}

// Refresh exchanges a refresh token for a fresh token pair.
// A rejected refresh token yields ErrAuth; the caller falls back to Login.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	payload := map[string]string{"refreshToken": refreshToken}

	body, _, err := c.request(ctx, http.MethodPost, pathRefreshToken, payload, nil, true)
	if err != nil {
		return Token{}, authError("token refresh", err)
	}
	return c.tokenFromResponse(body)
}

// Verify checks that the current access token is still accepted.
// Returns nil for a valid token, ErrAuth for a rejected one, and a plain
// transport error when the cloud could not be reached.
func (c *Client) Verify(ctx context.Context) error {
	_, _, err := c.request(ctx, http.MethodPost, pathVerifyToken, struct{}{}, nil, true)
	if err != nil {
		return authError("token verification", err)
	}
	return nil
}

func (c *Client) tokenFromResponse(body map[string]any) (Token, error) {
	data, ok := body["data"].(map[string]any)
	if !ok {
		return Token{}, fmt.Errorf("%w: token response carries no data object", ErrProtocol)
	}
	access, _ := data["accessToken"].(string)
	refresh, _ := data["refreshToken"].(string)
	expiresIn, _ := asInt(data["expiresIn"])
	if access == "" {
		return Token{}, fmt.Errorf("%w: token response carries no access token", ErrProtocol)
	}
	return Token{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    c.now().Unix() + int64(expiresIn),
	}, nil
}

// authError maps vendor rejections on the auth endpoints to ErrAuth while
// leaving transport and protocol errors untouched.
func authError(op string, err error) error {
	var se *ServerError
	if errors.As(err, &se) {
		return fmt.Errorf("%s: %w: %s", op, ErrAuth, se.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// request issues one API call: compose headers from the current session
// state, send, decode, and validate the envelope. The returned map is the
// full decoded body; callers pick their payload out of it. The raw bytes
// are returned alongside for callers that re-decode into typed structs.
func (c *Client) request(ctx context.Context, method, path string, payload any, extra map[string]string, authorized bool) (map[string]any, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers(authorized) {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, nil, fmt.Errorf("%w: %s %s: undecodable response body", ErrProtocol, method, path)
	}
	if err := checkEnvelope(body); err != nil {
		return nil, nil, err
	}
	return body, raw, nil
}

// headers composes the common header set from the current token and client
// versions. Rebuilt per request so token rotation needs no coordination.
func (c *Client) headers(authorized bool) map[string]string {
	c.mu.RLock()
	token := c.accessToken
	appVersion := c.appVersion
	iosVersion := c.iosVersion
	c.mu.RUnlock()

	h := map[string]string{
		"content-type":    "application/json;charset=utf8",
		"accept":          "*/*",
		"accept-encoding": "gzip, deflate, br",
		"accept-language": "zh-Hans-CN;q=1, en-US;q=0.9",
		"clienttype":      "2",
		"user-agent":      fmt.Sprintf("Treeow/%s (iPhone; iOS %s; Scale/3.00)", appVersion, iosVersion),
	}
	if authorized && token != "" {
		h["authorization"] = "Bearer " + token
	}
	return h
}
