package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qserveu/models"
)

// stubSource returns scripted snapshots in order, then repeats the last one.
type stubSource struct {
	mu      sync.Mutex
	tickets []*models.Ticket
	err     error
}

func (s *stubSource) CurrentTicket(_ context.Context, _ string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.tickets) == 0 {
		return nil, nil
	}
	t := s.tickets[0]
	if len(s.tickets) > 1 {
		s.tickets = s.tickets[1:]
	}
	return t, nil
}

// captureSink records displayed alerts for assertions.
type captureSink struct {
	mu     sync.Mutex
	titles []string
}

func (c *captureSink) Display(title, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.titles = append(c.titles, title)
}

func (c *captureSink) Titles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.titles...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waiting(number string, peopleAhead int) *models.Ticket {
	return &models.Ticket{Number: number, Status: models.StatusWaiting, PeopleAhead: peopleAhead}
}

func TestPoller_TickDeliversAlerts(t *testing.T) {
	source := &stubSource{tickets: []*models.Ticket{
		waiting("A005", 3),
		waiting("A005", 2),
	}}
	sink := &captureSink{}
	p := NewPoller("stu-1", source, []Sink{sink}, time.Millisecond, 0, testLogger())

	// First tick establishes the baseline, second reports the move.
	assert.False(t, p.tick(context.Background()))
	assert.False(t, p.tick(context.Background()))

	require.Equal(t, []string{"Queue Update"}, sink.Titles())
}

func TestPoller_TickStatusChange(t *testing.T) {
	source := &stubSource{tickets: []*models.Ticket{
		waiting("A005", 2),
		{Number: "A005", Status: models.StatusServing},
	}}
	sink := &captureSink{}
	p := NewPoller("stu-1", source, []Sink{sink}, time.Millisecond, 0, testLogger())

	p.tick(context.Background())
	p.tick(context.Background())

	assert.Equal(t, []string{"IT'S YOUR TURN!"}, sink.Titles())
}

func TestPoller_NoTicketCountsIdle(t *testing.T) {
	source := &stubSource{}
	p := NewPoller("stu-1", source, nil, time.Millisecond, 3, testLogger())

	assert.False(t, p.tick(context.Background()))
	assert.False(t, p.tick(context.Background()))
	assert.True(t, p.tick(context.Background()), "third idle tick should stop the poller")
}

func TestPoller_TicketResetsIdleCount(t *testing.T) {
	source := &stubSource{}
	p := NewPoller("stu-1", source, nil, time.Millisecond, 3, testLogger())

	p.tick(context.Background())
	p.tick(context.Background())

	source.mu.Lock()
	source.tickets = []*models.Ticket{waiting("A001", 0)}
	source.mu.Unlock()
	assert.False(t, p.tick(context.Background()))

	source.mu.Lock()
	source.tickets = nil
	source.mu.Unlock()
	assert.False(t, p.tick(context.Background()), "idle count should have restarted")
}

func TestPoller_ErrorDoesNotStop(t *testing.T) {
	source := &stubSource{err: errors.New("store down")}
	p := NewPoller("stu-1", source, nil, time.Millisecond, 3, testLogger())

	for i := 0; i < 5; i++ {
		assert.False(t, p.tick(context.Background()))
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	source := &stubSource{tickets: []*models.Ticket{waiting("A001", 0)}}
	p := NewPoller("stu-1", source, nil, time.Millisecond, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancel")
	}
}

func TestManager_StartIsIdempotent(t *testing.T) {
	source := &stubSource{tickets: []*models.Ticket{waiting("A001", 0)}}
	m := NewManager(context.Background(), source, func(string) []Sink { return nil }, time.Millisecond, 0, testLogger())
	defer m.Shutdown()

	m.Start("stu-1")
	m.Start("stu-1")

	m.mu.Lock()
	count := len(m.sessions)
	m.mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestManager_StopRemovesSession(t *testing.T) {
	source := &stubSource{tickets: []*models.Ticket{waiting("A001", 0)}}
	m := NewManager(context.Background(), source, func(string) []Sink { return nil }, time.Millisecond, 0, testLogger())
	defer m.Shutdown()

	m.Start("stu-1")
	m.Stop("stu-1")

	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.sessions) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestManager_ShutdownStopsEverySession(t *testing.T) {
	source := &stubSource{tickets: []*models.Ticket{waiting("A001", 0)}}
	m := NewManager(context.Background(), source, func(string) []Sink { return nil }, time.Millisecond, 0, testLogger())

	m.Start("stu-1")
	m.Start("stu-2")
	m.Shutdown()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Empty(t, m.sessions)
}