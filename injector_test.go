package subapp

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInjector_StyleIsFireAndForget(t *testing.T) {
	host := NewMemoryHost()
	inj := NewInjector(host, &logger{t})

	called := false
	h, err := inj.Inject(Resource{Kind: ResourceStyle, Source: "a.css"}, func(*ResourceHandle) { called = true })
	require.NoError(t, err)

	assert.Equal(t, ResourceStyle, h.Kind)
	assert.NotEmpty(t, h.ID)
	assert.NotNil(t, h.Artifact())
	assert.False(t, h.Completed())
	assert.False(t, called)
	assert.Equal(t, []string{"a.css"}, host.Attached())
}

func TestInjector_CompletionFiresOnceAcrossSignals(t *testing.T) {
	host := NewMemoryHost()
	inj := NewInjector(host, nil)

	var calls atomic.Int32
	h, err := inj.Inject(Resource{Kind: ResourceExecutable, Source: "a.js"}, func(*ResourceHandle) { calls.Add(1) })
	require.NoError(t, err)

	host.SetReadyState("a.js", ReadyStateLoading)
	host.SetReadyState("a.js", ReadyStateInteractive)
	assert.Zero(t, calls.Load(), "non-final ready states are not completion")
	assert.False(t, h.Completed())

	host.SetReadyState("a.js", ReadyStateLoaded)
	host.SetReadyState("a.js", ReadyStateComplete)
	host.SetReadyState("a.js", ReadyStateComplete)
	host.Complete("a.js")

	assert.EqualValues(t, 1, calls.Load())
	assert.True(t, h.Completed())
}

func TestInjector_ConcurrentSignals(t *testing.T) {
	var signal LoadSignal
	host := &MockHost{}
	host.On("InjectExecutable", "a.js", mock.Anything).
		Run(func(args mock.Arguments) { signal = args.Get(1).(LoadSignal) }).
		Return("artifact", nil)

	inj := NewInjector(host, nil)
	var calls atomic.Int32
	_, err := inj.Inject(Resource{Kind: ResourceExecutable, Source: "a.js"}, func(*ResourceHandle) { calls.Add(1) })
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); signal.Loaded() }()
		go func() { defer wg.Done(); signal.ReadyStateChanged(ReadyStateComplete) }()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	host.AssertExpectations(t)
}

func TestInjector_CompletionBeforeInjectReturns(t *testing.T) {
	host := NewMemoryHost()
	host.AutoComplete = true
	inj := NewInjector(host, nil)

	var got *ResourceHandle
	h, err := inj.Inject(Resource{Kind: ResourceExecutable, Source: "a.js"}, func(h *ResourceHandle) { got = h })
	require.NoError(t, err)
	assert.Same(t, h, got)
	assert.True(t, h.Completed())
}

func TestInjector_RemoveIsIdempotent(t *testing.T) {
	host := NewMemoryHost()
	inj := NewInjector(host, nil)

	h, err := inj.Inject(Resource{Kind: ResourceStyle, Source: "a.css"}, nil)
	require.NoError(t, err)

	require.NoError(t, inj.Remove(h))
	require.NoError(t, inj.Remove(h))
	require.NoError(t, inj.Remove(nil))

	assert.True(t, h.Removed())
	assert.Equal(t, []string{"a.css"}, host.Removed(), "the host sees exactly one removal")
	assert.Empty(t, host.Attached())
}

func TestInjector_RemoveDuringInjectionIsDeferred(t *testing.T) {
	host := NewMemoryHost()
	host.AutoComplete = true
	inj := NewInjector(host, nil)

	h, err := inj.Inject(Resource{Kind: ResourceExecutable, Source: "a.js"}, func(h *ResourceHandle) {
		// The artifact is not known yet.
		assert.Nil(t, h.Artifact())
		require.NoError(t, inj.Remove(h))
	})
	require.NoError(t, err)

	assert.True(t, h.Removed())
	assert.Equal(t, []string{"a.js"}, host.Removed())
	assert.Empty(t, host.Attached())
}

func TestInjector_DeferredRemovalFailureIsLogged(t *testing.T) {
	busy := errors.New("busy")
	var inj *Injector
	host := &MockHost{}
	host.On("InjectExecutable", "a.js", mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(LoadSignal).Loaded() }).
		Return("artifact", nil)
	host.On("Remove", "artifact").Return(busy).Once()

	log := &MockLogger{}
	log.On("Debug", mock.Anything, mock.Anything).Maybe()
	log.On("Warn", "Failed to remove resource after injection", mock.Anything).Once()

	inj = NewInjector(host, log)
	h, err := inj.Inject(Resource{Kind: ResourceExecutable, Source: "a.js"}, func(h *ResourceHandle) {
		require.NoError(t, inj.Remove(h))
	})
	require.NoError(t, err, "the resource was injected")
	require.NotNil(t, h)
	assert.True(t, h.Completed())
	assert.True(t, h.Removed())

	host.AssertExpectations(t)
	log.AssertExpectations(t)
}

func TestInjector_Errors(t *testing.T) {
	boom := errors.New("boom")
	host := NewMemoryHost()
	host.FailSources = map[string]error{"bad.css": boom}
	inj := NewInjector(host, nil)

	_, err := inj.Inject(Resource{Kind: ResourceStyle, Source: "bad.css"}, nil)
	assert.ErrorIs(t, err, ErrResourceInjection)
	assert.ErrorIs(t, err, boom)

	_, err = inj.Inject(Resource{Kind: ResourceStyle}, nil)
	assert.ErrorIs(t, err, ErrResourceSourceEmpty)

	_, err = inj.Inject(Resource{Kind: ResourceKind(9), Source: "x"}, nil)
	assert.ErrorIs(t, err, ErrUnknownResourceKind)

	_, err = NewInjector(nil, nil).Inject(Resource{Kind: ResourceStyle, Source: "x"}, nil)
	assert.ErrorIs(t, err, ErrHostNil)
}

func TestInjector_RemoveErrorIsWrapped(t *testing.T) {
	boom := errors.New("gone")
	host := &MockHost{}
	host.On("InjectStyle", "a.css").Return("artifact", nil)
	host.On("Remove", "artifact").Return(boom).Once()

	inj := NewInjector(host, nil)
	h, err := inj.Inject(Resource{Kind: ResourceStyle, Source: "a.css"}, nil)
	require.NoError(t, err)

	err = inj.Remove(h)
	assert.ErrorIs(t, err, ErrResourceRemoval)
	assert.ErrorIs(t, err, boom)
	host.AssertExpectations(t)
}

func TestInjector_OrderIncreases(t *testing.T) {
	inj := NewInjector(NewMemoryHost(), nil)
	a, err := inj.Inject(Resource{Kind: ResourceStyle, Source: "a.css"}, nil)
	require.NoError(t, err)
	b, err := inj.Inject(Resource{Kind: ResourceStyle, Source: "b.css"}, nil)
	require.NoError(t, err)
	assert.Less(t, a.Order, b.Order)
	assert.NotEqual(t, a.ID, b.ID)
}
