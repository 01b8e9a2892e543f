package adapter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/miraigo/miraigo/api"
	"github.com/miraigo/miraigo/bus"
	"github.com/miraigo/miraigo/event"
)

// ErrVerifyKeyMismatch rejects composing adapters with different
// credentials.
var ErrVerifyKeyMismatch = errors.New("compose: inner adapters must share the same verify key")

// ComposeAdapter splits traffic across two inner adapters: commands
// go to the api channel, background event ingestion to the event
// channel. A typical pairing is webhook (events in) + HTTP (commands
// out).
type ComposeAdapter struct {
	apiChannel   Adapter
	eventChannel Adapter
}

// NewCompose builds a composite adapter. Both inner adapters must
// carry the same verify key.
func NewCompose(apiChannel, eventChannel Adapter) (*ComposeAdapter, error) {
	if apiChannel.Info().VerifyKey != eventChannel.Info().VerifyKey {
		return nil, ErrVerifyKeyMismatch
	}
	return &ComposeAdapter{apiChannel: apiChannel, eventChannel: eventChannel}, nil
}

// Info mirrors the api channel's info.
func (a *ComposeAdapter) Info() Info { return a.apiChannel.Info() }

// Login logs in both channels.
func (a *ComposeAdapter) Login(ctx context.Context, qq int64) (Session, error) {
	apiSession, err := a.apiChannel.Login(ctx, qq)
	if err != nil {
		return nil, err
	}
	eventSession, err := a.eventChannel.Login(ctx, qq)
	if err != nil {
		apiSession.Shutdown(ctx)
		return nil, err
	}
	return &composeSession{apiSession: apiSession, eventSession: eventSession}, nil
}

// composeSession delegates commands to the api-channel session and
// everything event-related to the event-channel session.
type composeSession struct {
	apiSession   Session
	eventSession Session
}

func (s *composeSession) QQ() int64 { return s.apiSession.QQ() }
func (s *composeSession) Key() string { return s.apiSession.Key() }

func (s *composeSession) Subscribe(buses ...*bus.Bus) {
	s.eventSession.Subscribe(buses...)
}

func (s *composeSession) Start(ctx context.Context) error {
	return s.eventSession.Start(ctx)
}

func (s *composeSession) Wait() error {
	return s.eventSession.Wait()
}

func (s *composeSession) Emit(ctx context.Context, ev event.Event) {
	s.eventSession.Emit(ctx, ev)
}

func (s *composeSession) EmitRaw(ctx context.Context, raw json.RawMessage) error {
	return s.eventSession.EmitRaw(ctx, raw)
}

func (s *composeSession) CallAPI(ctx context.Context, name string, method api.Method, params map[string]any) (*api.Response, error) {
	return s.apiSession.CallAPI(ctx, name, method, params)
}

// Shutdown logs out both channels.
func (s *composeSession) Shutdown(ctx context.Context) error {
	apiErr := s.apiSession.Shutdown(ctx)
	eventErr := s.eventSession.Shutdown(ctx)
	if apiErr != nil {
		return apiErr
	}
	return eventErr
}
