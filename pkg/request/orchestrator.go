// Package request is the single path by which the client talks to the
// backend. It injects the bearer token, coalesces identical in-flight calls,
// classifies the {code,msg,data} envelope and drives the loading indicator,
// toasts and the forced logout on an expired session.
package request

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/eva-app/evaclient/pkg/logging"
	"github.com/eva-app/evaclient/pkg/metrics"
	"github.com/eva-app/evaclient/pkg/models"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultSuccessCode   = 200
	DefaultLoginRoute    = "/pages/login/index"
	DefaultRedirectDelay = 1500 * time.Millisecond
	DefaultTimeout       = 30 * time.Second
)

// authExpiredCode is the envelope code (and HTTP status) for a rejected token.
const authExpiredCode = 401

const maxResponseBytes = 10 << 20

// Session is the part of the session store the orchestrator needs.
type Session interface {
	Token() string
	Logout()
}

type anonymous struct{}

func (anonymous) Token() string { return "" }
func (anonymous) Logout()       {}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Recorder receives one record per dispatch.
type Recorder interface {
	Record(ctx context.Context, rec models.DispatchRecord) error
}

// Config holds the orchestrator settings.
type Config struct {
	BaseURL       string
	SuccessCode   int
	LoginRoute    string
	RedirectDelay time.Duration
	Timeout       time.Duration
	// RateLimit caps dispatches per second. Zero disables the limiter.
	RateLimit float64
	Burst     int
}

// Options tune a single call. The zero value coalesces duplicates and shows
// no loading indicator.
type Options struct {
	ShowLoading  bool
	DisableDedup bool
	Headers      map[string]string
}

// Request describes one call.
type Request struct {
	Method string
	Path   string
	Body   any
	Options
}

// Orchestrator dispatches requests. It is safe for concurrent use.
type Orchestrator struct {
	cfg      Config
	session  Session
	ui       UI
	client   Doer
	recorder Recorder
	limiter  *rate.Limiter
	log      *zap.Logger

	group   singleflight.Group
	waiting atomic.Int64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(d Doer) Option {
	return func(o *Orchestrator) { o.client = d }
}

// WithRecorder stores a DispatchRecord for every dispatch.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = logging.OrNop(log) }
}

// New creates an Orchestrator. A nil ui discards notices.
func New(cfg Config, sess Session, ui UI, opts ...Option) *Orchestrator {
	if cfg.SuccessCode == 0 {
		cfg.SuccessCode = DefaultSuccessCode
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = DefaultLoginRoute
	}
	if cfg.RedirectDelay == 0 {
		cfg.RedirectDelay = DefaultRedirectDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if ui == nil {
		ui = NopUI{}
	}
	if sess == nil {
		sess = anonymous{}
	}

	o := &Orchestrator{
		cfg:     cfg,
		session: sess,
		ui:      ui,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     zap.NewNop(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Waiting returns how many callers are currently registered on a dispatch.
func (o *Orchestrator) Waiting() int64 {
	return o.waiting.Load()
}

// Get issues a GET. body, when non-nil, is sent as query parameters.
func (o *Orchestrator) Get(ctx context.Context, path string, body any, opts ...Options) (json.RawMessage, error) {
	return o.Do(ctx, newRequest(http.MethodGet, path, body, opts))
}

// Post issues a POST with a JSON body.
func (o *Orchestrator) Post(ctx context.Context, path string, body any, opts ...Options) (json.RawMessage, error) {
	return o.Do(ctx, newRequest(http.MethodPost, path, body, opts))
}

// Put issues a PUT with a JSON body.
func (o *Orchestrator) Put(ctx context.Context, path string, body any, opts ...Options) (json.RawMessage, error) {
	return o.Do(ctx, newRequest(http.MethodPut, path, body, opts))
}

// Delete issues a DELETE with a JSON body.
func (o *Orchestrator) Delete(ctx context.Context, path string, body any, opts ...Options) (json.RawMessage, error) {
	return o.Do(ctx, newRequest(http.MethodDelete, path, body, opts))
}

func newRequest(method, path string, body any, opts []Options) Request {
	r := Request{Method: method, Path: path, Body: body}
	if len(opts) > 0 {
		r.Options = opts[0]
	}
	return r
}

// Do performs req and returns the envelope's data on success. Errors are
// *BusinessError, ErrAuthExpired or *NetworkError; ctx.Err() is returned
// when the caller stops waiting.
//
// Callers with the same method, path and body share one dispatch while it is
// in flight, and every one of them sees the same outcome. A dispatch is not
// cancelled when its callers go away; it settles on its own and its side
// effects still apply.
func (o *Orchestrator) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	canon, err := canonicalJSON(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	detached := context.WithoutCancel(ctx)

	if req.DisableDedup {
		done := make(chan Result, 1)
		go func() { done <- o.dispatch(detached, method, req, canon) }()

		o.register()
		defer o.unregister()
		select {
		case res := <-done:
			return res.Value()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := fingerprint(method, req.Path, canon)
	leader := false
	ch := o.group.DoChan(key, func() (any, error) {
		leader = true
		return o.dispatch(detached, method, req, canon), nil
	})

	o.register()
	defer o.unregister()
	select {
	case r := <-ch:
		if !leader {
			metrics.Coalesced.Inc()
		}
		return r.Val.(Result).Value()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) register() {
	o.waiting.Add(1)
	metrics.Waiting.Inc()
}

func (o *Orchestrator) unregister() {
	o.waiting.Add(-1)
	metrics.Waiting.Dec()
}

// dispatch performs one network call and applies its side effects.
func (o *Orchestrator) dispatch(ctx context.Context, method string, req Request, canon string) Result {
	if req.ShowLoading {
		o.ui.ShowLoading(MsgLoading)
		defer o.ui.HideLoading()
	}

	id := uuid.NewString()
	start := time.Now()

	sendCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	res := o.send(sendCtx, id, method, req, canon)
	cancel()
	o.notify(method, req.Path, res)

	elapsed := time.Since(start)
	outcome := res.Kind.Outcome()
	metrics.Dispatches.WithLabelValues(method, string(outcome)).Inc()
	metrics.DispatchDuration.WithLabelValues(method).Observe(elapsed.Seconds())

	if o.recorder != nil {
		rec := models.DispatchRecord{
			ID:        id,
			Method:    method,
			Path:      req.Path,
			Outcome:   outcome,
			Code:      res.Code,
			LatencyMs: elapsed.Milliseconds(),
			CreatedAt: time.Now().UTC(),
		}
		if err := o.recorder.Record(ctx, rec); err != nil {
			o.log.Warn("record dispatch", zap.String("request_id", id), zap.Error(err))
		}
	}
	return res
}

func (o *Orchestrator) send(ctx context.Context, id, method string, req Request, canon string) Result {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return networkResult(fmt.Errorf("rate limit: %w", err))
		}
	}

	httpReq, err := o.newHTTPRequest(ctx, id, method, req, canon)
	if err != nil {
		return networkResult(err)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return networkResult(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return networkResult(fmt.Errorf("read response: %w", err))
	}
	return o.classify(resp.StatusCode, body)
}

func (o *Orchestrator) newHTTPRequest(ctx context.Context, id, method string, req Request, canon string) (*http.Request, error) {
	target := o.cfg.BaseURL + req.Path

	var body io.Reader
	if canon != "null" {
		if method == http.MethodGet {
			q, err := queryFromJSON(canon)
			if err != nil {
				return nil, err
			}
			if len(q) > 0 {
				sep := "?"
				if strings.Contains(target, "?") {
					sep = "&"
				}
				target += sep + q.Encode()
			}
		} else {
			body = strings.NewReader(canon)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", id)
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if token := o.session.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

// classify maps a response onto a Result. Bodies without a numeric code are
// not envelopes; those fail as network errors unless the status is 401.
func (o *Orchestrator) classify(status int, body []byte) Result {
	if !gjson.ValidBytes(body) {
		return o.classifyBare(status)
	}
	env := gjson.ParseBytes(body)
	codeField := env.Get("code")
	if !env.IsObject() || codeField.Type != gjson.Number {
		return o.classifyBare(status)
	}

	code := int(codeField.Int())
	msg := env.Get("msg").String()

	switch code {
	case o.cfg.SuccessCode:
		var data json.RawMessage
		if d := env.Get("data"); d.Exists() {
			data = json.RawMessage(d.Raw)
		}
		return okResult(code, data)
	case authExpiredCode:
		return authExpiredResult(msg)
	default:
		return businessResult(code, msg)
	}
}

func (o *Orchestrator) classifyBare(status int) Result {
	if status == http.StatusUnauthorized {
		return authExpiredResult("")
	}
	res := networkResult(fmt.Errorf("%w (HTTP %d)", ErrNoEnvelope, status))
	res.Code = status
	return res
}

// notify applies the user-facing side effects of a settled dispatch.
func (o *Orchestrator) notify(method, path string, res Result) {
	switch res.Kind {
	case KindAuthExpired:
		o.log.Info("session rejected by server, logging out",
			zap.String("method", method), zap.String("path", path))
		o.session.Logout()
		o.ui.Toast(MsgSessionExpired)
		route := o.cfg.LoginRoute
		time.AfterFunc(o.cfg.RedirectDelay, func() { o.ui.RedirectToLogin(route) })
	case KindBusiness:
		o.log.Debug("request rejected",
			zap.String("method", method), zap.String("path", path),
			zap.Int("code", res.Code), zap.String("msg", res.Msg))
		msg := res.Msg
		if msg == "" {
			msg = MsgRequestFailed
		}
		o.ui.Toast(msg)
	case KindNetwork:
		o.log.Warn("request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(res.Err))
		o.ui.Toast(MsgNetworkUnavailable)
	}
}

// Decode unmarshals data into a T, passing err through unchanged. Empty or
// null data yields the zero T.
func Decode[T any](data json.RawMessage, err error) (T, error) {
	var v T
	if err != nil {
		return v, err
	}
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode response data: %w", err)
	}
	return v, nil
}
