package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/hupe1980/hookmesh/core"
	"github.com/hupe1980/hookmesh/internal/testutil"
	"github.com/hupe1980/hookmesh/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockObserver for testing lifecycle notifications
type MockObserver struct {
	mock.Mock
	observerType ObserverType
}

func NewMockObserver(observerType ObserverType) *MockObserver {
	return &MockObserver{observerType: observerType}
}

func (m *MockObserver) Type() ObserverType { return m.observerType }

func (m *MockObserver) Observe(info *DispatchInfo) error {
	args := m.Called(info)
	return args.Error(0)
}

func TestObservers_Lifecycle(t *testing.T) {
	before := NewMockObserver(BeforeDispatch)
	after := NewMockObserver(AfterDispatch)

	before.On("Observe", mock.MatchedBy(func(info *DispatchInfo) bool {
		return info.Hook == "title" && info.Mode == ModeFilter && info.Depth == 1 && info.DispatchID != ""
	})).Return(nil).Once()
	after.On("Observe", mock.MatchedBy(func(info *DispatchInfo) bool {
		return info.Hook == "title" && info.Value == "TITLE" && info.Err == nil
	})).Return(nil).Once()

	table := New(func(o *Options) {
		o.Observers = []Observer{before, after}
	})
	require.NoError(t, table.Register("title", core.Static(upper)))

	got, err := table.ApplyFilters("title", "title")
	require.NoError(t, err)
	assert.Equal(t, "TITLE", got)

	before.AssertExpectations(t)
	after.AssertExpectations(t)
}

func TestObservers_BeforeDispatchAborts(t *testing.T) {
	veto := errors.New("veto")
	rec := testutil.NewRecorder()

	table := New()
	table.Observers().Register(NewFunctionObserver(BeforeDispatch, func(info *DispatchInfo) error {
		if info.Hook == "blocked" {
			return veto
		}
		return nil
	}))
	require.NoError(t, table.Register("blocked", rec.Callback("cb", nil)))

	err := table.DoAction("blocked")
	assert.ErrorIs(t, err, veto)
	assert.Empty(t, rec.Names())
	assert.Equal(t, 0, table.Count("blocked"), "vetoed actions are not counted")
	assert.False(t, table.IsDispatching(""))
}

func TestObservers_OnError(t *testing.T) {
	boom := errors.New("boom")
	onError := NewMockObserver(OnError)
	onError.On("Observe", mock.MatchedBy(func(info *DispatchInfo) bool {
		return errors.Is(info.Err, boom) && info.Mode == ModeAction
	})).Return(nil).Once()

	table := New(func(o *Options) { o.Observers = []Observer{onError} })
	require.NoError(t, table.Register("fail", core.Named("bad", func(...any) (any, error) { return nil, boom })))

	assert.ErrorIs(t, table.DoAction("fail"), boom)
	onError.AssertExpectations(t)
}

func TestObserverManager_Len(t *testing.T) {
	m := NewObserverManager()
	m.Register(NewFunctionObserver(AfterDispatch, nil))
	m.Register(NewLoggingObserver(AfterDispatch, nil))

	assert.Equal(t, 2, m.Len(AfterDispatch))
	assert.Equal(t, 0, m.Len(OnError))
	assert.NoError(t, m.Notify(AfterDispatch, &DispatchInfo{Hook: "x"}))
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	table := New(func(o *Options) {
		o.Observers = []Observer{
			NewLoggingObserver(BeforeDispatch, logger),
			NewLoggingObserver(AfterDispatch, logger),
		}
	})

	require.NoError(t, table.DoAction("save", 1))

	out := buf.String()
	assert.Contains(t, out, "hook.dispatch.start")
	assert.Contains(t, out, "hook.dispatch.done")
	assert.Contains(t, out, "hook=save")
	assert.Contains(t, out, "mode=action")
}

func TestLoggingObserver_HookLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := logging.DefaultLoggerConfig()
	cfg.Output = &buf
	cfg.Level = logging.LogLevelDebug
	logger := logging.NewLogger(cfg)

	table := New(func(o *Options) {
		o.Logger = logger
		o.Observers = []Observer{
			NewLoggingObserver(AfterDispatch, logger),
			NewLoggingObserver(OnError, logger),
		}
	})

	cb := core.Named("bad", func(...any) (any, error) { return nil, errors.New("boom") })
	require.NoError(t, table.Register("fail", cb, WithPriority(3)))
	require.Error(t, table.DoAction("fail"))
	assert.True(t, table.Unregister("fail", cb.Key(), 3))

	var msgs []string
	var failed map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		msgs = append(msgs, rec["msg"].(string))
		if rec["msg"] == "hook.dispatch.error" {
			failed = rec
		}
	}

	assert.Equal(t, []string{"hook.register", "hook.dispatch.error", "hook.unregister"}, msgs)
	require.NotNil(t, failed)
	assert.Equal(t, "fail", failed["hook"])
	assert.NotEmpty(t, failed["dispatch_id"])
	assert.Equal(t, "action", failed["mode"])
}

func TestTable_ObserverFailureIsLoggedWithDispatch(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

	table := New(func(o *Options) {
		o.Logger = logger
		o.Observers = []Observer{NewFunctionObserver(OnError, func(*DispatchInfo) error {
			return errors.New("sink down")
		})}
	})
	require.NoError(t, table.Register("fail", core.Named("bad", func(...any) (any, error) {
		return nil, errors.New("boom")
	})))

	assert.Error(t, table.DoAction("fail"))

	out := buf.String()
	assert.Contains(t, out, "hook.observer.failed")
	assert.Contains(t, out, "hook=fail")
	assert.Contains(t, out, "dispatch_id=")
	assert.Contains(t, out, "sink down")
}
