package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voicenote/audio"
	"voicenote/log"
)

const ToggleAction = "toggle-recording"

const MissingKeyNotice = "Please set your OpenAI API key in settings first!"

var ErrMissingAPIKey = errors.New("openai api key not set")

// ActionRegistry is the host surface a command is published through.
type ActionRegistry interface {
	Register(name string, fn func())
	Unregister(name string)
}

// Store is the slice of persisted settings the controller needs.
type Store interface {
	APIKey() string
	SetRecording(on bool) error
}

type ControllerConfig struct {
	Store Store
	// Build returns the session configuration for a new recording.
	Build  func(apiKey string) Config
	Notify func(msg string)
	// OnStarted and OnFailed report the outcome of each start attempt.
	OnStarted func()
	OnFailed  func(error)
	// OnStopped receives the summary of every finished recording.
	OnStopped func(Summary)
}

// Controller is the toggle command. It keeps at most one active session.
type Controller struct {
	cfg ControllerConfig

	mu       sync.Mutex
	active   *Session
	registry ActionRegistry
	wg       sync.WaitGroup
}

func NewController(cfg ControllerConfig) *Controller {
	if cfg.Notify == nil {
		cfg.Notify = func(string) {}
	}
	return &Controller{cfg: cfg}
}

// Register publishes the toggle action on reg.
func (c *Controller) Register(reg ActionRegistry) {
	c.mu.Lock()
	c.registry = reg
	c.mu.Unlock()
	reg.Register(ToggleAction, func() {
		if err := c.Toggle(context.Background()); err != nil {
			log.Warnf("toggle recording: %v", err)
		}
	})
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

func (c *Controller) Toggle(ctx context.Context) error {
	if c.Recording() {
		c.Stop(ctx)
		return nil
	}
	return c.Start(ctx)
}

func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return nil
	}

	key := c.cfg.Store.APIKey()
	if key == "" {
		c.cfg.Notify(MissingKeyNotice)
		c.failed(ErrMissingAPIKey)
		return ErrMissingAPIKey
	}

	scfg := c.cfg.Build(key)
	userClose := scfg.OnVendorClose
	scfg.OnVendorClose = func(s *Session) {
		c.vendorClosed(s)
		if userClose != nil {
			userClose(s)
		}
	}
	if scfg.Notify == nil {
		scfg.Notify = c.cfg.Notify
	}

	s, err := Start(ctx, scfg)
	if err != nil {
		if errors.Is(err, audio.ErrMicrophoneUnavailable) {
			c.cfg.Notify(fmt.Sprintf("Error accessing microphone: %v", err))
		} else {
			c.cfg.Notify(fmt.Sprintf("Could not start recording: %v", err))
		}
		log.Errorf("start recording: %v", err)
		c.failed(err)
		return err
	}

	c.active = s
	if err := c.cfg.Store.SetRecording(true); err != nil {
		log.Warnf("persist recording flag: %v", err)
	}
	c.cfg.Notify("Recording started")
	if c.cfg.OnStarted != nil {
		c.cfg.OnStarted()
	}
	return nil
}

func (c *Controller) failed(err error) {
	if c.cfg.OnFailed != nil {
		c.cfg.OnFailed(err)
	}
}

// Stop ends the active recording, if any, and waits for its final pass.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	s := c.active
	c.active = nil
	c.mu.Unlock()
	if s == nil {
		return
	}
	c.finish(ctx, s)
	c.cfg.Notify("Recording stopped")
}

// Close stops any active recording and withdraws the toggle action.
func (c *Controller) Close(ctx context.Context) {
	c.Stop(ctx)
	c.wg.Wait()

	c.mu.Lock()
	reg := c.registry
	c.registry = nil
	c.mu.Unlock()
	if reg != nil {
		reg.Unregister(ToggleAction)
	}
}

func (c *Controller) finish(ctx context.Context, s *Session) {
	sum := s.Stop(ctx)
	if err := c.cfg.Store.SetRecording(false); err != nil {
		log.Warnf("persist recording flag: %v", err)
	}
	if c.cfg.OnStopped != nil {
		c.cfg.OnStopped(sum)
	}
}

// vendorClosed runs on the socket's reader goroutine, so teardown happens
// elsewhere.
func (c *Controller) vendorClosed(s *Session) {
	c.mu.Lock()
	if c.active != s {
		c.mu.Unlock()
		return
	}
	c.active = nil
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.finish(context.Background(), s)
	}()
}
