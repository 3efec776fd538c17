package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mrlokans/lingua/internal/database/crud"
	"github.com/mrlokans/lingua/internal/metrics"
)

type lookupRequest struct {
	Word     string `json:"word" validate:"required"`
	Language string `json:"language,omitempty" validate:"omitempty,len=2"`
}

func newTestRegistry(t *testing.T) (*Registry, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	reg := NewRegistry(Config{Timeout: time.Second, Logger: zap.New(core), Metrics: metrics.New()})
	reg.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return reg, logs
}

func TestDispatch_Success(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.Handle("dictionary:lookup", Typed(func(_ context.Context, req lookupRequest) (string, error) {
		return "definition of " + req.Word, nil
	})))

	result, envelope := reg.Dispatch(context.Background(), "dictionary:lookup", json.RawMessage(`{"word":"hello"}`))
	require.Nil(t, envelope)
	assert.Equal(t, "definition of hello", result)
}

func TestDispatch_NoArgs(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.Handle("app:version", Typed(func(context.Context, NoArgs) (string, error) {
		return "1.0.0", nil
	})))

	for _, args := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`{}`), json.RawMessage(" ")} {
		result, envelope := reg.Dispatch(context.Background(), "app:version", args)
		require.Nil(t, envelope)
		assert.Equal(t, "1.0.0", result)
	}
}

func TestDispatch_InvalidArguments(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.Handle("dictionary:lookup", Typed(func(_ context.Context, req lookupRequest) (string, error) {
		return req.Word, nil
	})))

	tests := []struct {
		name    string
		args    string
		message string
	}{
		{"missing required", `{}`, "word failed on required"},
		{"bad length", `{"word":"x","language":"eng"}`, "language failed on len=2"},
		{"unknown field", `{"word":"x","extra":1}`, "unknown field"},
		{"wrong type", `{"word":1}`, "malformed arguments"},
		{"syntax", `{"word":`, "malformed arguments"},
		{"trailing data", `{"word":"x"} {}`, "trailing data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, envelope := reg.Dispatch(context.Background(), "dictionary:lookup", json.RawMessage(tt.args))
			assert.Nil(t, result)
			require.NotNil(t, envelope)
			assert.Equal(t, CodeInvalidArgument, envelope.Code)
			assert.Contains(t, envelope.Message, tt.message)
		})
	}
}

func TestDispatch_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code Code
	}{
		{crud.ErrNotFound, CodeNotFound},
		{fmt.Errorf("%w: duplicate md5", crud.ErrConflict), CodeConflict},
		{fmt.Errorf("%w: cannot filter by x", crud.ErrInvalidField), CodeInvalidArgument},
		{ErrUnavailable, CodeUnavailable},
		{Errorf(CodeUnavailable, "task queue disabled"), CodeUnavailable},
		{errors.New("disk on fire"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			reg, _ := newTestRegistry(t)
			require.NoError(t, reg.Handle("audios:findById", Typed(func(context.Context, NoArgs) (any, error) {
				return nil, tt.err
			})))

			_, envelope := reg.Dispatch(context.Background(), "audios:findById", nil)
			require.NotNil(t, envelope)
			assert.Equal(t, tt.code, envelope.Code)
			assert.Equal(t, "audios:findById", envelope.Method)
			assert.Equal(t, int64(1700000000000), envelope.Timestamp)
		})
	}
}

func TestDispatch_InternalErrorsDoNotLeak(t *testing.T) {
	reg, logs := newTestRegistry(t)
	require.NoError(t, reg.Handle("audios:create", Typed(func(context.Context, NoArgs) (any, error) {
		return nil, errors.New("pq: password authentication failed for user lingua")
	})))

	_, envelope := reg.Dispatch(context.Background(), "audios:create", nil)
	require.NotNil(t, envelope)
	assert.Equal(t, "internal error", envelope.Message)

	entries := logs.FilterMessage("ipc call failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "password authentication failed")
}

func TestDispatch_UnknownChannel(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, envelope := reg.Dispatch(context.Background(), "audios:findAll", nil)
	require.NotNil(t, envelope)
	assert.Equal(t, CodeUnavailable, envelope.Code)

	reg.MarkReady()
	_, envelope = reg.Dispatch(context.Background(), "audios:findAll", nil)
	require.NotNil(t, envelope)
	assert.Equal(t, CodeUnknownMethod, envelope.Code)
}

func TestDispatch_Timeout(t *testing.T) {
	reg, _ := newTestRegistry(t)
	release := make(chan struct{})
	defer close(release)

	require.NoError(t, reg.Handle("app:slow", Typed(func(ctx context.Context, _ NoArgs) (any, error) {
		<-release // Ignores ctx on purpose
		return nil, nil
	}), WithTimeout(20*time.Millisecond)))

	_, envelope := reg.Dispatch(context.Background(), "app:slow", nil)
	require.NotNil(t, envelope)
	assert.Equal(t, CodeTimeout, envelope.Code)
}

func TestDispatch_HandlerSeesDeadline(t *testing.T) {
	reg, _ := newTestRegistry(t)
	require.NoError(t, reg.Handle("app:deadline", Typed(func(ctx context.Context, _ NoArgs) (bool, error) {
		_, ok := ctx.Deadline()
		return ok, nil
	})))

	result, envelope := reg.Dispatch(context.Background(), "app:deadline", nil)
	require.Nil(t, envelope)
	assert.Equal(t, true, result)
}

func TestDispatch_RecoversPanics(t *testing.T) {
	reg, logs := newTestRegistry(t)
	require.NoError(t, reg.Handle("app:boom", Typed(func(context.Context, NoArgs) (any, error) {
		panic("boom")
	})))

	_, envelope := reg.Dispatch(context.Background(), "app:boom", nil)
	require.NotNil(t, envelope)
	assert.Equal(t, CodeInternal, envelope.Code)
	assert.Equal(t, 1, logs.FilterMessage("ipc handler panicked").Len())
}

func TestEnvelope_Error(t *testing.T) {
	envelope := NewEnvelope("chats:members", crud.ErrNotFound, time.Now())
	assert.Equal(t, "chats:members: record not found (NOT_FOUND)", envelope.Error())

	// An envelope passed back through another call keeps its code.
	again := NewEnvelope("other:call", envelope, time.Now())
	assert.Equal(t, CodeNotFound, again.Code)
}
