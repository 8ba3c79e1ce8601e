package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/inbox/internal/inbox"
	"github.com/grovetools/inbox/pkg/lemmy"
	"github.com/grovetools/inbox/pkg/session"
	"github.com/grovetools/inbox/pkg/visibility"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type countingCollector struct {
	runs atomic.Int32
}

func (c *countingCollector) Name() string { return "counting" }

func (c *countingCollector) Run(ctx context.Context) error {
	c.runs.Add(1)
	<-ctx.Done()
	return nil
}

type nopAPI struct{}

func (nopAPI) GetUnreadCount(ctx context.Context, auth string) (lemmy.GetUnreadCountResponse, error) {
	return lemmy.GetUnreadCountResponse{Replies: 1}, nil
}

func (nopAPI) GetReportCount(ctx context.Context, auth string) (lemmy.GetReportCountResponse, error) {
	return lemmy.GetReportCountResponse{}, nil
}

func (nopAPI) GetUnreadRegistrationApplicationCount(ctx context.Context, auth string) (lemmy.GetUnreadRegistrationApplicationCountResponse, error) {
	return lemmy.GetUnreadRegistrationApplicationCountResponse{}, nil
}

func TestEngineRunsCollectorsUntilCancelled(t *testing.T) {
	store := session.NewStore("", nil)
	h := inbox.NewHandle(func() *inbox.Service {
		return inbox.New(nopAPI{}, store, visibility.Always{}, inbox.WithInterval(time.Hour))
	})
	eng := New(h, logrus.NewEntry(logrus.New()))
	extra := &countingCollector{}
	eng.Register(extra)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return extra.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Same(t, h.Get(), eng.Inbox())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestBeforeStartRunsFirst(t *testing.T) {
	store := session.NewStore("", nil)
	h := inbox.NewHandle(func() *inbox.Service {
		return inbox.New(nopAPI{}, store, visibility.Always{}, inbox.WithInterval(time.Hour))
	})
	eng := New(h, logrus.NewEntry(logrus.New()))
	extra := &countingCollector{}
	eng.Register(extra)

	var runsAtPrepare []int32
	eng.BeforeStart(func(ctx context.Context) {
		runsAtPrepare = append(runsAtPrepare, extra.runs.Load())
	})
	eng.BeforeStart(func(ctx context.Context) {
		runsAtPrepare = append(runsAtPrepare, extra.runs.Load())
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return extra.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, []int32{0, 0}, runsAtPrepare)
}
