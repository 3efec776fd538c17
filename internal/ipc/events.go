package ipc

// Emitter pushes main-process events to the renderer.
type Emitter interface {
	Emit(event string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any)

func (f EmitterFunc) Emit(event string, payload any) {
	f(event, payload)
}

// NopEmitter drops every event.
var NopEmitter Emitter = EmitterFunc(func(string, any) {})

// Event names pushed to the renderer.
const (
	EventInitStatus     = "app:init-status"
	EventRecordUploaded = "recordings:uploaded"
	EventCachePurged    = "cacheObjects:purged"
)
