// Package runner executes a server script against a live URL without a
// GreasySpoon instance.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sadopc/spoonemu/internal/diff"
	"github.com/sadopc/spoonemu/internal/history"
	"github.com/sadopc/spoonemu/internal/logger"
	"github.com/sadopc/spoonemu/internal/message"
	"github.com/sadopc/spoonemu/internal/script"
	"github.com/sadopc/spoonemu/internal/scripting"
)

// Config holds runner configuration.
type Config struct {
	ScriptPath    string
	URL           string // may contain {{var}} placeholders
	Vars          map[string]string
	MessageType   message.MessageType
	Timeout       time.Duration
	ScriptTimeout time.Duration
	MatchMode     message.MatchMode
	Proxy         string
	NoProxy       string
	Force         bool      // run even when @include/@exclude/@responsecode reject the URL
	CaptureBody   bool      // keep the response body in Result.Body
	Output        io.Writer // setBody destination, stdout when nil
}

// Result holds the outcome of one run.
type Result struct {
	ID            string        `json:"id"`
	Script        string        `json:"script"`
	URL           string        `json:"url"`
	Status        string        `json:"status"`
	ContentType   string        `json:"content_type,omitempty"`
	HeadersBefore string        `json:"headers_before"`
	HeadersAfter  string        `json:"headers_after"`
	Changes       []diff.Change `json:"changes,omitempty"`
	Logs          []string      `json:"logs,omitempty"`
	BodyWrites    []string      `json:"body_writes,omitempty"`
	Body          string        `json:"body,omitempty"`
	Skipped       bool          `json:"skipped"`
	SkipReason    string        `json:"skip_reason,omitempty"`
	FetchError    string        `json:"fetch_error,omitempty"`
	Error         error         `json:"-"`
	ErrorString   string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	Timestamp     time.Time     `json:"timestamp"`
}

// Runner runs one script.
type Runner struct {
	cfg     Config
	script  *script.Script
	engine  *scripting.Engine
	history *history.Store
	log     *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory records every run in store.
func WithHistory(store *history.Store) Option {
	return func(r *Runner) { r.history = store }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// New loads the script and validates cfg.
func New(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.ScriptPath == "" {
		return nil, errors.New("script path is required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("URL is required")
	}

	s, err := script.LoadFile(cfg.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("loading script: %w", err)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	r := &Runner{
		cfg:    cfg,
		script: s,
		engine: scripting.NewEngine(cfg.ScriptTimeout),
		log:    logger.L(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Script returns the loaded script.
func (r *Runner) Script() *script.Script { return r.script }

// Run fetches the URL, runs the script against the response and records
// the outcome. Fetch failures do not stop the script: like GreasySpoon's
// HttpMessage, the script sees status "0" and no headers.
func (r *Runner) Run(ctx context.Context) *Result {
	start := time.Now()
	target := resolveVars(r.cfg.URL, r.cfg.Vars)
	res := &Result{
		ID:        uuid.NewString(),
		Script:    r.script.Name,
		URL:       target,
		Status:    "0",
		Timestamp: start,
	}
	defer func() {
		res.Duration = time.Since(start)
		r.record(res)
	}()

	if !r.cfg.Force && !r.script.Matches(target) {
		res.Skipped = true
		if !r.script.Enabled {
			res.SkipReason = "script status is off"
		} else {
			res.SkipReason = "URL not matched by @include/@exclude"
		}
		return res
	}

	msg := message.Open(ctx, target, r.cfg.MessageType,
		message.WithTimeout(r.cfg.Timeout),
		message.WithMatchMode(r.cfg.MatchMode),
		message.WithProxy(r.cfg.Proxy, r.cfg.NoProxy),
		message.WithOutput(r.cfg.Output),
		message.WithLogger(r.log),
	)
	defer msg.Close()

	before := msg.Headers()
	res.Status = msg.Type()
	res.HeadersBefore = msg.ResponseHeaders()
	if i := before.Index("Content-Type", message.MatchLiteral); i >= 0 {
		res.ContentType = before[i].Value
	}
	if err := msg.Err(); err != nil {
		res.FetchError = err.Error()
	}

	if !r.cfg.Force && !r.script.AcceptsStatus(res.Status) {
		res.Skipped = true
		res.SkipReason = fmt.Sprintf("status %s not in @responsecode %s", res.Status, strings.Join(r.script.ResponseCodes, ","))
		res.HeadersAfter = res.HeadersBefore
		return res
	}

	rec := &recorder{Message: msg}
	sr := r.engine.Run(ctx, r.script.Source, rec)
	res.Logs = sr.Logs
	res.BodyWrites = rec.writes
	if sr.Err != nil {
		res.Error = sr.Err
		res.ErrorString = sr.Err.Error()
	}

	res.HeadersAfter = msg.ResponseHeaders()
	res.Changes = diff.Headers(before, msg.Headers())

	if r.cfg.CaptureBody {
		if rec.bodyRead {
			res.Body = rec.body
		} else {
			res.Body = msg.Body()
		}
	}
	return res
}

func (r *Runner) record(res *Result) {
	if r.history == nil {
		return
	}
	errStr := res.ErrorString
	if errStr == "" {
		errStr = res.FetchError
	}
	_, err := r.history.Add(history.Entry{
		RunID:     res.ID,
		Script:    res.Script,
		URL:       res.URL,
		Status:    res.Status,
		Headers:   res.HeadersAfter,
		Logs:      strings.Join(res.Logs, "\n"),
		Error:     errStr,
		Skipped:   res.Skipped,
		Duration:  res.Duration,
		Timestamp: res.Timestamp,
	})
	if err != nil {
		r.log.Warn("recording run history failed", zap.String("run_id", res.ID), zap.Error(err))
	}
}

// recorder keeps the first body the script reads and every setBody call.
type recorder struct {
	*message.Message
	body     string
	bodyRead bool
	writes   []string
}

func (rc *recorder) Body() string {
	b := rc.Message.Body()
	if !rc.bodyRead {
		rc.body, rc.bodyRead = b, true
	}
	return b
}

func (rc *recorder) SetBody(body string) {
	rc.writes = append(rc.writes, body)
	rc.Message.SetBody(body)
}

// ExitCode maps a result to the process exit code.
// 0 = ran or skipped, 1 = script error, 2 = fetch error.
func ExitCode(res *Result) int {
	if res.FetchError != "" {
		return 2
	}
	if res.Error != nil {
		return 1
	}
	return 0
}
