package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoModule struct {
	name   string
	routes []Route
}

func (m echoModule) Name() string    { return m.name }
func (m echoModule) Routes() []Route { return m.routes }

func echo() Endpoint {
	return Typed(func(_ context.Context, req map[string]any) (map[string]any, error) {
		return req, nil
	})
}

func TestRegistry_Handle(t *testing.T) {
	reg := NewRegistry(Config{})

	require.NoError(t, reg.Handle("audios:findAll", echo(), WithDescription("list audios")))
	assert.True(t, reg.Has("audios:findAll"))

	err := reg.Handle("audios:findAll", echo())
	assert.ErrorIs(t, err, ErrChannelExists)
}

func TestRegistry_Handle_InvalidNames(t *testing.T) {
	reg := NewRegistry(Config{})

	for _, name := range []string{"", "audios", "audios:", ":findAll", "Audios:findAll", "audios:find-all", "a:b:c"} {
		err := reg.Handle(name, echo())
		assert.ErrorIs(t, err, ErrInvalidChannel, name)
	}
}

func TestRegistry_Handle_NilHandler(t *testing.T) {
	reg := NewRegistry(Config{})
	assert.Error(t, reg.Handle("app:noop", Endpoint{}))
}

func TestRegistry_RegisterModule(t *testing.T) {
	reg := NewRegistry(Config{Timeout: time.Second})

	err := reg.RegisterModule(echoModule{name: "videos", routes: []Route{
		{Method: "findAll", Endpoint: echo()},
		{Method: "findByMd5", Endpoint: echo(), Timeout: 5 * time.Second},
	}})
	require.NoError(t, err)

	channels := reg.Channels()
	require.Len(t, channels, 2)
	assert.Equal(t, "videos:findAll", channels[0].Channel)
	assert.Equal(t, "videos", channels[0].Module)
	assert.Equal(t, "1s", channels[0].Timeout)
	assert.Equal(t, "findByMd5", channels[1].Method)
	assert.Equal(t, "5s", channels[1].Timeout)
}

func TestRegistry_RegisterModule_IsAtomic(t *testing.T) {
	reg := NewRegistry(Config{})
	require.NoError(t, reg.Handle("videos:delete", echo()))

	err := reg.RegisterModule(echoModule{name: "videos", routes: []Route{
		{Method: "create", Endpoint: echo()},
		{Method: "delete", Endpoint: echo()},
	}})
	assert.ErrorIs(t, err, ErrChannelExists)
	assert.False(t, reg.Has("videos:create"))

	err = reg.RegisterModule(echoModule{name: "dup", routes: []Route{
		{Method: "a", Endpoint: echo()},
		{Method: "a", Endpoint: echo()},
	}})
	assert.ErrorIs(t, err, ErrChannelExists)
	assert.False(t, reg.Has("dup:a"))

	err = reg.RegisterModule(echoModule{name: "Bad", routes: nil})
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestRegistry_ChannelsSorted(t *testing.T) {
	reg := NewRegistry(Config{})
	for _, name := range []string{"speeches:findAll", "app:version", "chats:members"} {
		require.NoError(t, reg.Handle(name, echo()))
	}

	var names []string
	for _, info := range reg.Channels() {
		names = append(names, info.Channel)
	}
	assert.Equal(t, []string{"app:version", "chats:members", "speeches:findAll"}, names)
}
