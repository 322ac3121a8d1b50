package notification

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (s *recordingSink) Notify(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func TestTemplateEngine_BuiltIns(t *testing.T) {
	e := NewTemplateEngine()
	for _, id := range []string{
		TemplateChildLinked, TemplateUpcomingImmunization, TemplateOverdueImmunization,
		TemplateAppointmentRequested, TemplateAppointmentConfirmed,
		TemplateAppointmentCancelled, TemplateAppointmentCompleted,
	} {
		_, _, err := e.Render(id, nil)
		assert.NoError(t, err, id)
	}
	assert.Len(t, e.templates, len(builtIn), "engine carries exactly the built-in templates")
}

func TestTemplateEngine_ConcurrentCompose(t *testing.T) {
	e := NewTemplateEngine()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := e.Compose(TemplateChildLinked, map[string]string{"patient_name": "Ava"}, Message{UserID: uuid.New()})
			assert.NoError(t, err)
			assert.True(t, strings.HasPrefix(msg.Body, "Ava"))
		}()
	}
	wg.Wait()
}

func TestTemplateEngine_Render(t *testing.T) {
	e := NewTemplateEngine()
	title, body, err := e.Render(TemplateUpcomingImmunization, map[string]string{
		"patient_name": "Ava",
		"vaccine_name": "MMR",
		"due_date":     "3/14/2025",
	})
	require.NoError(t, err)
	assert.Equal(t, "Upcoming Immunization", title)
	assert.Equal(t, "Ava has an upcoming MMR immunization due on 3/14/2025", body)
}

func TestTemplateEngine_RenderSinglePass(t *testing.T) {
	e := NewTemplateEngine()
	_, body, err := e.Render(TemplateChildLinked, map[string]string{"patient_name": "{{vaccine_name}}", "vaccine_name": "X"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(body, "{{vaccine_name}} has been"), body)
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	_, _, err := NewTemplateEngine().Render("nope", nil)
	assert.Error(t, err)
}

func TestTemplateEngine_Compose(t *testing.T) {
	uid := uuid.New()
	msg, err := NewTemplateEngine().Compose(TemplateOverdueImmunization,
		map[string]string{"patient_name": "Ava", "vaccine_name": "BCG", "due_date": "1/2/2024"},
		Message{UserID: uid})
	require.NoError(t, err)
	assert.Equal(t, uid, msg.UserID)
	assert.Equal(t, TypeOverdueImmunization, msg.Type)
	assert.Equal(t, PriorityHigh, msg.Priority)
	assert.Equal(t, "Overdue Immunization", msg.Title)
	assert.Contains(t, msg.Body, "that was due on 1/2/2024")
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "3/7/2025", FormatDate(time.Date(2025, 3, 7, 10, 0, 0, 0, time.UTC)))
}

func TestDispatcher_Deliver(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, zerolog.Nop())
	ok := d.Deliver(context.Background(), Message{UserID: uuid.New(), Type: TypeGeneral})
	assert.True(t, ok)
	assert.Equal(t, 1, sink.count())
}

func TestDispatcher_DeliverFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	sink := &recordingSink{err: errors.New("disk full")}
	d := NewDispatcher(sink, zerolog.New(&buf))

	ok := d.Deliver(context.Background(), Message{UserID: uuid.New(), Type: TypeGeneral})
	assert.False(t, ok)
	assert.Contains(t, buf.String(), "notification delivery failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestDispatcher_DeliverRecoversPanic(t *testing.T) {
	d := NewDispatcher(SinkFunc(func(context.Context, Message) error { panic("boom") }), zerolog.Nop())
	assert.False(t, d.Deliver(context.Background(), Message{}))
}

func TestDispatcher_DispatchSurvivesCancelledRequest(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, Message{UserID: uuid.New(), Type: TypeGeneral})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	d.Wait(waitCtx)
	assert.Equal(t, 1, sink.count())
}
