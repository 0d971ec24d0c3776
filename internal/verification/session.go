// Package verification drives one photo verification from selection to
// reward.
package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/aiclient"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/extractor"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/repository"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	Idle Status = iota
	Verifying
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Verifying:
		return "verifying"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

var (
	// ErrInProgress is returned when a verification is already running.
	ErrInProgress = errors.New("verification already in progress")
	// ErrNotReset is returned when a finished session is started again.
	ErrNotReset = errors.New("verification finished; reset before starting again")
)

// ReportVerifier advances a report to verified.
type ReportVerifier interface {
	MarkVerified(ctx context.Context, reportID string) (*repository.Report, error)
}

// Rewarder credits the collector of a verified report.
type Rewarder interface {
	CreditCollection(ctx context.Context, userID, reportID string) (*repository.User, error)
}

// Config wires a Session.
type Config struct {
	Generator aiclient.Generator
	Mode      extractor.Mode
	Prompt    string
	Reports   ReportVerifier
	Rewards   Rewarder
	Logger    *zap.Logger
}

// Option customizes a Session.
type Option func(*Session)

type confirmation struct {
	reportID    string
	collectorID string
	policy      Policy
}

// WithConfirmation makes a successful verification that satisfies policy
// verify reportID and reward collectorID.
func WithConfirmation(reportID, collectorID string, policy Policy) Option {
	return func(s *Session) {
		s.confirm = &confirmation{reportID: reportID, collectorID: collectorID, policy: policy}
	}
}

// Outcome describes a finished verification.
type Outcome struct {
	Result    *extractor.Result
	Raw       string
	Accepted  bool
	Report    *repository.Report
	Collector *repository.User
	Latency   time.Duration
}

// Session is a single verification surface. It is safe for concurrent use;
// at most one verification runs at a time.
type Session struct {
	cfg     Config
	confirm *confirmation
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	status Status
	images []imagecodec.Image
	result *extractor.Result
	err    error
}

// New constructs an idle Session.
func New(cfg Config, opts ...Option) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{cfg: cfg, logger: logger.Named("verification"), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select attaches a single image.
func (s *Session) Select(img *imagecodec.Image) error {
	if img == nil || len(img.Data) == 0 {
		return apperror.New(apperror.KindNoImage, "no image selected")
	}
	return s.attach([]imagecodec.Image{*img})
}

// SelectPair attaches a before and after image. Both are required.
func (s *Session) SelectPair(before, after *imagecodec.Image) error {
	if before == nil || len(before.Data) == 0 {
		return apperror.New(apperror.KindNoImage, "no before image selected")
	}
	if after == nil || len(after.Data) == 0 {
		return apperror.New(apperror.KindNoImage, "no after image selected")
	}
	return s.attach([]imagecodec.Image{*before, *after})
}

func (s *Session) attach(images []imagecodec.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startableLocked(); err != nil {
		return err
	}
	s.images = images
	return nil
}

func (s *Session) startableLocked() error {
	switch s.status {
	case Verifying:
		return ErrInProgress
	case Success, Failure:
		return ErrNotReset
	}
	return nil
}

// Start runs the verification. Side effects of a confirmed verification run
// after the result is stored; if one fails the session stays Success and
// the error is returned with the outcome.
func (s *Session) Start(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()
	if err := s.startableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(s.images) == 0 {
		s.mu.Unlock()
		return nil, apperror.New(apperror.KindNoImage, "no image selected")
	}
	s.status = Verifying
	images := s.images
	s.mu.Unlock()

	started := s.now()
	raw, result, err := s.run(ctx, images)
	latency := s.now().Sub(started)
	if err != nil {
		s.finish(Failure, nil, err)
		s.logger.Warn("verification failed",
			zap.String("mode", string(s.cfg.Mode)),
			zap.String("kind", apperror.KindOf(err).String()),
			zap.Duration("latency", latency),
			zap.Error(err))
		return nil, err
	}
	s.finish(Success, result, nil)

	outcome := &Outcome{Result: result, Raw: raw, Latency: latency}
	s.logger.Info("verification succeeded",
		zap.String("mode", string(s.cfg.Mode)),
		zap.Float64("confidence", result.Confidence),
		zap.Duration("latency", latency))

	if s.confirm == nil {
		return outcome, nil
	}
	return outcome, s.applyConfirmation(ctx, outcome)
}

func (s *Session) run(ctx context.Context, images []imagecodec.Image) (string, *extractor.Result, error) {
	if s.cfg.Generator == nil {
		return "", nil, apperror.New(apperror.KindAuth, "verification model is not configured")
	}
	raw, err := s.cfg.Generator.Generate(ctx, images, s.cfg.Prompt)
	if err != nil {
		return "", nil, err
	}
	result, err := extractor.Extract(raw, s.cfg.Mode)
	if err != nil {
		return raw, nil, err
	}
	return raw, result, nil
}

func (s *Session) applyConfirmation(ctx context.Context, outcome *Outcome) error {
	c := s.confirm
	if c.policy == nil || !c.policy(outcome.Result) {
		s.logger.Info("verification not accepted",
			zap.String("report_id", c.reportID),
			zap.Float64("confidence", outcome.Result.Confidence))
		return nil
	}
	outcome.Accepted = true
	if s.cfg.Reports == nil || s.cfg.Rewards == nil {
		return apperror.New(apperror.KindUnknown, "confirmation side effects are not configured")
	}

	report, err := s.cfg.Reports.MarkVerified(ctx, c.reportID)
	if err != nil {
		s.logger.Error("failed to verify report", zap.String("report_id", c.reportID), zap.Error(err))
		return err
	}
	outcome.Report = report

	collector, err := s.cfg.Rewards.CreditCollection(ctx, c.collectorID, c.reportID)
	if err != nil {
		s.logger.Error("failed to credit collector",
			zap.String("report_id", c.reportID),
			zap.String("collector_id", c.collectorID),
			zap.Error(err))
		return err
	}
	outcome.Collector = collector
	return nil
}

func (s *Session) finish(status Status, result *extractor.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.result = result
	s.err = err
}

// Reset returns the session to Idle and clears images, result and error.
// A running verification is not interrupted; Reset returns ErrInProgress.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == Verifying {
		return ErrInProgress
	}
	s.status = Idle
	s.images = nil
	s.result = nil
	s.err = nil
	return nil
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Result returns the stored result, set only in Success.
func (s *Session) Result() *extractor.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Err returns the stored error, set only in Failure.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
