////////////////////////////////////////////////////////////////////////////////
// Copyright © 2022 xx foundation                                             //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package worker

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"gitlab.com/elixxir/threadworker/codec"
)

const testTimeout = 2 * time.Second

// mapResolver is a Resolver over a flat map of dotted paths.
type mapResolver map[string]any

func (r mapResolver) Resolve(path string) (any, bool) {
	v, ok := r[path]
	return v, ok
}

// startWorker creates and starts a worker running setup as its entry point and
// returns both Endpoints once the entry point has returned.
func startWorker(t *testing.T, p Params, resolver Resolver,
	setup func(child *Endpoint)) (main, child *Endpoint, host *GoHost) {
	ready := make(chan *Endpoint, 1)
	host = NewGoHost(p.Name, map[string]EntryFunc{
		"main": func(w *Endpoint) error {
			if setup != nil {
				setup(w)
			}
			ready <- w
			return nil
		},
	})

	main, err := New(host, resolver, p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = main.Stop() })

	require.NoError(t, main.Start("main"))
	select {
	case child = <-ready:
	case <-time.After(testTimeout):
		t.Fatal("Timed out waiting for entry point.")
	}
	return main, child, host
}

func waitFor[T any](t *testing.T, c <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(testTimeout):
		t.Fatalf("Timed out waiting for %s.", what)
	}
	var zero T
	return zero
}

// Tests a sync round trip: a child handler for "ping" returning {pong: true}
// is received by the main side's PostSync.
func TestEndpoint_PostSync(t *testing.T) {
	main, child, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("ping", func(any) (any, error) {
			return map[string]any{"pong": true}, nil
		})
	})
	require.True(t, main.IsMain())
	require.False(t, child.IsMain())
	require.Equal(t, Running, main.State())

	result, err := main.PostSync("ping", nil, true)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"pong": true}, result)
}

// Tests a sync call from the child to a main-side handler and that the data
// reaches the handler unpacked.
func TestEndpoint_PostSync_ChildToMain(t *testing.T) {
	main, child, _ := startWorker(t, DefaultParams(), nil, nil)
	main.On("add", func(data any) (any, error) {
		args := data.([]any)
		return args[0].(float64) + args[1].(float64), nil
	})

	result, err := child.PostSync("add", []any{1.0, 2.0}, true)
	require.NoError(t, err)
	require.Equal(t, 3.0, result)
}

// Tests that shared references in a sync call survive the round trip.
func TestEndpoint_PostSync_SharedReference(t *testing.T) {
	type handle struct{ name string }
	main, _, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("echo", func(data any) (any, error) { return data, nil })
	})

	h := &handle{"shared"}
	result, err := main.PostSync("echo", map[string]any{"a": h, "b": h}, true)
	require.NoError(t, err)
	m := result.(map[string]any)
	require.Same(t, h, m["a"])
	require.Same(t, m["a"], m["b"])
}

// Tests that a failing or panicking handler is surfaced as a
// HandlerExecutionError only when throwOnError is set.
func TestEndpoint_PostSync_HandlerError(t *testing.T) {
	main, _, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("fail", func(any) (any, error) { return nil, errors.New("bad") })
		w.On("panic", func(any) (any, error) { panic("boom") })
	})

	for _, tag := range []Tag{"fail", "panic"} {
		_, err := main.PostSync(tag, nil, true)
		var hee *HandlerExecutionError
		require.True(t, errors.As(err, &hee), "tag %q: %+v", tag, err)
		require.Equal(t, tag, hee.Tag)

		result, err := main.PostSync(tag, nil, false)
		require.NoError(t, err)
		require.Nil(t, result)
	}
}

// Tests that a result that cannot be packed fails the sync call.
func TestEndpoint_PostSync_UnsupportedResult(t *testing.T) {
	main, _, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("fn", func(any) (any, error) { return func() {}, nil })
	})

	_, err := main.PostSync("fn", nil, true)
	var hee *HandlerExecutionError
	require.True(t, errors.As(err, &hee), "%+v", err)
}

// Tests that the last truthy result of several handlers is returned.
func TestEndpoint_PostSync_LastTruthyWins(t *testing.T) {
	main, _, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("multi", constHandler("a"))
		w.On("multi", constHandler("b"))
		w.On("multi", constHandler(nil))
	})

	result, err := main.PostSync("multi", nil, true)
	require.NoError(t, err)
	require.Equal(t, "b", result)

	result, err = main.PostSync("none", nil, true)
	require.NoError(t, err)
	require.Nil(t, result)
}

// Tests that PostSync fails before the worker is started.
func TestEndpoint_PostSync_Unstarted(t *testing.T) {
	main, err := New(NewGoHost("test", nil), nil, DefaultParams())
	require.NoError(t, err)
	defer main.Stop()

	_, err = main.PostSync("ping", nil, true)
	var ioe *InvalidOperationError
	require.True(t, errors.As(err, &ioe), "%+v", err)
}

// Tests that PostSync times out when ResponseTimeout is set.
func TestEndpoint_PostSync_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p := DefaultParams()
	p.ResponseTimeout = 20 * time.Millisecond
	main, _, _ := startWorker(t, p, nil, func(w *Endpoint) {
		w.On("slow", func(any) (any, error) { <-release; return 1, nil })
	})

	_, err := main.PostSync("slow", nil, true)
	require.ErrorContains(t, err, "timed out")
}

// Tests that closing the worker wakes a blocked PostSync with a
// PeerClosedError.
func TestEndpoint_PostSync_WokenByClose(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	defer close(release)
	main, _, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("slow", func(any) (any, error) {
			close(entered)
			<-release
			return 1, nil
		})
	})

	errs := make(chan error, 1)
	go func() {
		_, err := main.PostSync("slow", nil, true)
		errs <- err
	}()

	waitFor(t, entered, "handler")
	require.NoError(t, main.Stop())

	err := waitFor(t, errs, "PostSync")
	var pce *PeerClosedError
	require.True(t, errors.As(err, &pce), "%+v", err)
	require.Equal(t, Closed, main.State())
}

// Tests that two posts are received by the peer in post order.
func TestEndpoint_Post_Order(t *testing.T) {
	received := make(chan any, 2)
	main, _, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("n", func(data any) (any, error) { received <- data; return nil, nil })
	})

	require.NoError(t, main.Post("n", 1))
	require.NoError(t, main.Post("n", 2))

	require.Equal(t, 1, waitFor(t, received, "first post"))
	require.Equal(t, 2, waitFor(t, received, "second post"))
}

// Tests that posts sent before Start are delivered after the entry point ran.
func TestEndpoint_Post_BeforeStart(t *testing.T) {
	received := make(chan any, 1)
	host := NewGoHost("test", map[string]EntryFunc{
		"main": func(w *Endpoint) error {
			w.On("early", func(data any) (any, error) {
				received <- data
				return nil, nil
			})
			return nil
		},
	})
	main, err := New(host, nil, DefaultParams())
	require.NoError(t, err)
	defer main.Stop()

	require.NoError(t, main.Post("early", "hello"))
	require.Equal(t, 1, main.peer.port.Pending())
	require.NoError(t, main.Start("main"))

	require.Equal(t, "hello", waitFor(t, received, "early post"))
}

// Tests that data with a function is rejected before anything is sent.
func TestEndpoint_Post_Unsupported(t *testing.T) {
	main, err := New(NewGoHost("test", nil), nil, DefaultParams())
	require.NoError(t, err)
	defer main.Stop()

	err = main.Post("x", map[string]any{"fn": func() {}})
	var uve *codec.UnsupportedValueError
	require.True(t, errors.As(err, &uve), "%+v", err)
	require.Equal(t, "fn", uve.Path)
	require.Equal(t, 0, main.peer.port.Pending())

	_, err = main.PostSync("x", []any{codec.Symbol{}}, true)
	require.True(t, errors.As(err, &uve), "%+v", err)
}

// Tests that posting to a closed worker fails.
func TestEndpoint_Post_Closed(t *testing.T) {
	main, child, _ := startWorker(t, DefaultParams(), nil, nil)
	require.NoError(t, main.Stop())

	var pce *PeerClosedError
	require.True(t, errors.As(main.Post("x", 1), &pce))
	require.True(t, errors.As(child.Post("x", 1), &pce))
	_, err := child.PostSync("x", 1, true)
	require.True(t, errors.As(err, &pce))
	require.True(t, errors.As(main.Eval("", ""), &pce))
}

// Tests that a close hook returning false vetoes the child's close request
// and that the worker closes once no hook vetoes.
func TestEndpoint_Stop_Veto(t *testing.T) {
	main, child, _ := startWorker(t, DefaultParams(), nil, nil)

	hooked := make(chan struct{}, 1)
	veto := main.On(CloseTag, func(any) (any, error) {
		hooked <- struct{}{}
		return false, nil
	})
	main.On(CloseTag, constHandler(nil))

	require.NoError(t, child.Stop())
	waitFor(t, hooked, "close hook")

	result, err := child.PostSync(CloseTag, nil, true)
	require.NoError(t, err)
	require.Equal(t, false, result)
	waitFor(t, hooked, "close hook")
	require.Equal(t, Running, main.State())

	require.True(t, main.Remove(CloseTag, veto))
	result, err = child.PostSync(CloseTag, nil, true)
	require.NoError(t, err)
	require.Equal(t, true, result)

	waitFor(t, main.Done(), "close")
	require.Equal(t, Closed, child.State())
}

// Tests that a child close request without hooks closes the worker.
func TestEndpoint_Stop_Child(t *testing.T) {
	main, child, _ := startWorker(t, DefaultParams(), nil, nil)
	require.NoError(t, child.Stop())
	waitFor(t, main.Done(), "close")

	_, exists := Lookup(main.ID())
	require.False(t, exists)
}

// Tests that Start and Eval fail on the child side, from the worker's own
// thread, and when the worker was already started.
func TestEndpoint_InvalidOperation(t *testing.T) {
	main, child, _ := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("selfEval", func(any) (any, error) {
			return nil, w.peer.Eval("1", "self")
		})
	})

	var ioe *InvalidOperationError
	require.True(t, errors.As(child.Eval("1", "child"), &ioe))
	require.True(t, errors.As(child.Start("main"), &ioe))
	require.True(t, errors.As(main.Start("main"), &ioe))

	_, err := main.PostSync("selfEval", nil, true)
	var hee *HandlerExecutionError
	require.True(t, errors.As(err, &hee), "%+v", err)
	require.ErrorContains(t, err, "own thread")
}

// Tests that Eval delivers the chunk to the host in order with posts.
func TestEndpoint_Eval(t *testing.T) {
	chunks := make(chan string, 2)
	main, _, host := startWorker(t, DefaultParams(), nil, func(w *Endpoint) {
		w.On("mark", func(data any) (any, error) {
			chunks <- data.(string)
			return nil, nil
		})
	})
	host.SetEval(func(_ *Endpoint, chunk, chunkName string) error {
		chunks <- chunkName + ":" + chunk
		return nil
	})

	require.NoError(t, main.Post("mark", "before"))
	require.NoError(t, main.Eval("x = 1", "init"))

	require.Equal(t, "before", waitFor(t, chunks, "post"))
	require.Equal(t, "init:x = 1", waitFor(t, chunks, "eval"))
}

// Tests remote resolution against the main side's resolver.
func TestEndpoint_Remote(t *testing.T) {
	resolver := mapResolver{"native.Time.frameCount": 42}
	_, child, _ := startWorker(t, DefaultParams(), resolver, nil)

	result, err := child.PostSync(RemoteTag, "native.Time.frameCount", true)
	require.NoError(t, err)
	require.Equal(t, 42, result)

	result, err = child.PostSync(RemoteTag, "native.Time", true)
	require.NoError(t, err)
	require.Nil(t, result)

	result, err = child.PostSync(RemoteTag, 5, true)
	require.NoError(t, err)
	require.Nil(t, result)
}

// Tests that removed handlers are no longer called.
func TestEndpoint_Remove(t *testing.T) {
	main, child, _ := startWorker(t, DefaultParams(), nil, nil)
	id := child.On("v", constHandler("first"))
	child.On("v", constHandler("second"))
	require.Equal(t, HandlerID(0), child.On("", constHandler(1)))
	require.Equal(t, HandlerID(0), child.On("v", nil))

	require.True(t, child.Remove("v", id))
	result, err := main.PostSync("v", nil, true)
	require.NoError(t, err)
	require.Equal(t, "second", result)

	child.RemoveAll("v")
	result, err = main.PostSync("v", nil, true)
	require.NoError(t, err)
	require.Nil(t, result)
}

// Tests the registry of live workers.
func TestReleaseAll(t *testing.T) {
	main1, _, _ := startWorker(t, DefaultParams(), nil, nil)
	main2, err := New(NewGoHost("test", nil), nil, DefaultParams())
	require.NoError(t, err)

	w, exists := Lookup(main1.ID())
	require.True(t, exists)
	require.Same(t, main1, w)
	require.Contains(t, Instances(), main2)

	ReleaseAll()
	require.Equal(t, Closed, main1.State())
	require.Equal(t, Closed, main2.State())
	require.Empty(t, Instances())
}
