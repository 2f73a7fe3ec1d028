package bridge

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/transpop/internal/apperrors"
	"github.com/oukeidos/transpop/internal/command"
	"github.com/oukeidos/transpop/internal/events"
)

type fakeInvoker struct {
	mu      sync.Mutex
	reqs    []command.Request
	saves   []command.SaveRequest
	block   chan struct{}
	failure error
}

func (f *fakeInvoker) Invoke(ctx context.Context, name string, req command.Request) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	block, failure := f.block, f.failure
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if failure != nil {
		return "", failure
	}
	return name + ":" + req.Text, nil
}

func (f *fakeInvoker) SaveSettings(_ context.Context, req command.SaveRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, req)
	return f.failure
}

func start(t *testing.T, inv command.Invoker) (*Server, *Client) {
	t.Helper()
	srv := NewServer(inv)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		hs.Close()
	})
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + Path
	c, err := Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.Eventually(t, func() bool { return srv.clientCount() == 1 }, time.Second, 5*time.Millisecond)
	return srv, c
}

func TestInvokeRoundTrip(t *testing.T) {
	inv := &fakeInvoker{}
	_, c := start(t, inv)

	out, err := c.Invoke(context.Background(), command.Correct, command.Request{
		Text:       "I running",
		Provider:   command.Opt("groq"),
		TargetLang: command.Opt("English"),
	})
	require.NoError(t, err)
	assert.Equal(t, "correct:I running", out)

	require.Len(t, inv.reqs, 1)
	assert.Equal(t, "groq", command.Value(inv.reqs[0].Provider))
	assert.Equal(t, "English", command.Value(inv.reqs[0].TargetLang))
	assert.Nil(t, inv.reqs[0].Model)
}

func TestInvokeErrorsKeepKind(t *testing.T) {
	inv := &fakeInvoker{failure: apperrors.New(apperrors.KindRateLimit, "Groq API rate limit exceeded (429)", errors.New("SECRET_SELECTION"))}
	_, c := start(t, inv)

	_, err := c.Invoke(context.Background(), command.Translate, command.Request{Text: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindRateLimit))
	assert.Contains(t, err.Error(), "rate limit exceeded")
	assert.NotContains(t, err.Error(), "SECRET_SELECTION")

	_, err = c.Invoke(context.Background(), "summarize", command.Request{Text: "x"})
	assert.True(t, apperrors.Is(err, apperrors.KindBadRequest))
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	inv := &fakeInvoker{}
	_, c := start(t, inv)

	err := c.SaveSettings(context.Background(), command.SaveRequest{
		Provider:           command.Opt("openai"),
		ShortcutWindowType: command.Opt("popup"),
		Prompt:             &command.Prompt{Type: command.Translate, Value: "v"},
	})
	require.NoError(t, err)
	require.Len(t, inv.saves, 1)
	assert.Equal(t, "openai", command.Value(inv.saves[0].Provider))
	assert.Nil(t, inv.saves[0].APIKey)
	assert.Equal(t, "v", inv.saves[0].Prompt.Value)
}

func TestConcurrentInvokesAreMatchedById(t *testing.T) {
	_, c := start(t, &fakeInvoker{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := strings.Repeat("x", i+1)
			out, err := c.Invoke(context.Background(), command.Translate, command.Request{Text: text})
			assert.NoError(t, err)
			assert.Equal(t, "translate:"+text, out)
		}(i)
	}
	wg.Wait()
}

func TestInvokeContextCancel(t *testing.T) {
	inv := &fakeInvoker{block: make(chan struct{})}
	_, c := start(t, inv)
	defer close(inv.block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Invoke(ctx, command.Translate, command.Request{Text: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEventsBothWays(t *testing.T) {
	srv, c := start(t, &fakeInvoker{})

	fromClient := make(chan any, 1)
	_, err := srv.Listen(events.IconClicked, func(p any) { fromClient <- p })
	require.NoError(t, err)
	fromServer := make(chan any, 1)
	_, err = c.Listen(events.ShortcutPopupTranslate, func(p any) { fromServer <- p })
	require.NoError(t, err)

	require.NoError(t, c.Emit(events.IconClicked, "hello"))
	select {
	case p := <-fromClient:
		assert.Equal(t, "hello", p)
	case <-time.After(time.Second):
		t.Fatal("server did not receive event")
	}

	require.NoError(t, srv.Emit(events.ShortcutPopupTranslate, "text:hi"))
	select {
	case p := <-fromServer:
		assert.Equal(t, "text:hi", p)
	case <-time.After(time.Second):
		t.Fatal("client did not receive event")
	}
}

func TestServerCloseFailsPending(t *testing.T) {
	inv := &fakeInvoker{block: make(chan struct{})}
	srv, c := start(t, inv)
	defer close(inv.block)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Invoke(context.Background(), command.Translate, command.Request{Text: "x"})
		errCh <- err
	}()
	require.Eventually(t, func() bool {
		inv.mu.Lock()
		defer inv.mu.Unlock()
		return len(inv.reqs) == 1
	}, time.Second, 5*time.Millisecond)

	srv.Close()
	select {
	case err := <-errCh:
		assert.True(t, apperrors.Is(err, apperrors.KindUnavailable), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending invoke was not failed")
	}
	<-c.Done()

	_, err := c.Invoke(context.Background(), command.Translate, command.Request{Text: "after"})
	assert.True(t, apperrors.Is(err, apperrors.KindUnavailable))
}

func TestMalformedFramesAreSkipped(t *testing.T) {
	srv := NewServer(&fakeInvoker{})
	hs := httptest.NewServer(srv.Handler())
	defer hs.Close()
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http")+Path, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"1","type":"invoke","command":"refine","args":{"text":"ok"}}`)))

	var f Frame
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ws.ReadJSON(&f))
	assert.Equal(t, "1", f.ID)
	assert.Equal(t, FrameResult, f.Type)
	require.NotNil(t, f.Result)
	assert.Equal(t, "refine:ok", *f.Result)
	assert.Nil(t, f.Error)
}

func TestDialUnavailable(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ipc")
	assert.True(t, apperrors.Is(err, apperrors.KindUnavailable))
}
