package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/texttalk/internal/models"
	"github.com/yoockh/texttalk/internal/utils"
)

// MaxChars is the longest text accepted for one conversion, in characters.
const MaxChars = 500

const (
	MsgEmptyInput       = "Please enter text."
	MsgTooLong          = "Maximum 500 characters allowed."
	MsgNotAuthenticated = "Please sign in to convert text."
	MsgBackendError     = "Error generating audio."
	MsgConverted        = "Audio generated successfully!"
)

type ConversionState string

const (
	StateIdle     ConversionState = "idle"
	StateInFlight ConversionState = "in_flight"
)

// IdentitySource is the read side of SessionManager.
type IdentitySource interface {
	Current() *models.User
	AccessToken() string
}

// ValidateText checks text before any identity or network work.
func ValidateText(text string) error {
	const op = "ValidateText"

	if strings.TrimSpace(text) == "" {
		return utils.E(utils.CodeInvalidArgument, op, MsgEmptyInput, utils.ErrEmptyInput)
	}
	if utf8.RuneCountInString(text) > MaxChars {
		return utils.E(utils.CodeInvalidArgument, op, MsgTooLong, utils.ErrTooLong)
	}
	return nil
}

// ConversionController submits at most one conversion at a time and routes
// outcomes into the notification state.
type ConversionController struct {
	identity IdentitySource
	backend  ConversionBackend
	notes    *NotificationState
	log      *logrus.Entry

	life   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  ConversionState
	result *models.ConversionResult
	closed bool
}

func NewConversionController(identity IdentitySource, backend ConversionBackend, notes *NotificationState, l *logrus.Logger) *ConversionController {
	if l == nil {
		l = logrus.New()
	}
	life, cancel := context.WithCancel(context.Background())
	return &ConversionController{
		identity: identity,
		backend:  backend,
		notes:    notes,
		log:      l.WithField("component", "conversion"),
		life:     life,
		cancel:   cancel,
		state:    StateIdle,
	}
}

// Submit validates text, then calls the backend once. A call made while
// another is in flight returns ErrInFlight without touching any state.
// The backend call ignores ctx cancellation; only Close aborts it.
func (c *ConversionController) Submit(ctx context.Context, text string) (*models.ConversionResult, error) {
	const op = "ConversionController.Submit"

	if err := c.precheck(op); err != nil {
		return nil, err
	}

	if err := ValidateText(text); err != nil {
		c.notes.Error(utils.Message(err, MsgEmptyInput))
		return nil, err
	}
	user := c.identity.Current()
	if user == nil {
		c.notes.Error(MsgNotAuthenticated)
		return nil, utils.E(utils.CodeUnauthorized, op, MsgNotAuthenticated, utils.ErrNotAuthenticated)
	}

	c.mu.Lock()
	if err := c.precheckLocked(op); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.state = StateInFlight
	c.result = nil
	c.mu.Unlock()

	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(c.life, cancel)
	res, err := c.backend.Convert(callCtx, ConversionRequest{
		Text:        text,
		UserID:      user.ID,
		AccessToken: c.identity.AccessToken(),
	})
	stop()
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle

	log := c.log.WithFields(logrus.Fields{"op": op, "user_id": user.ID, "chars": utf8.RuneCountInString(text)})

	if c.closed {
		log.Debug("dropping conversion result after close")
		return nil, utils.E(utils.CodeUnavailable, op, "controller closed", utils.ErrClosed)
	}
	if err == nil && (res == nil || res.AudioURL == "") {
		err = errors.New("backend returned no audio location")
	}
	if err != nil {
		log.WithError(err).Warn("conversion failed")
		c.notes.Error(MsgBackendError)
		return nil, utils.E(utils.CodeBadGateway, op, MsgBackendError, errors.Join(utils.ErrBackend, err))
	}

	out := *res
	c.result = &out
	c.notes.Success(MsgConverted)
	log.Info("conversion done")
	return &models.ConversionResult{AudioURL: out.AudioURL}, nil
}

func (c *ConversionController) precheck(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.precheckLocked(op)
}

func (c *ConversionController) precheckLocked(op string) error {
	if c.closed {
		return utils.E(utils.CodeUnavailable, op, "controller closed", utils.ErrClosed)
	}
	if c.state == StateInFlight {
		return utils.E(utils.CodeConflict, op, "conversion already in progress", utils.ErrInFlight)
	}
	return nil
}

// Result returns the latest successful result, or nil.
func (c *ConversionController) Result() *models.ConversionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return nil
	}
	r := *c.result
	return &r
}

func (c *ConversionController) State() ConversionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *ConversionController) InFlight() bool { return c.State() == StateInFlight }

// Close cancels any in-flight call; its result is discarded.
func (c *ConversionController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}
