package broadcast

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"guardbot/internal/settings"
	"guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

type captureAdapter struct {
	mu     sync.Mutex
	photos []transport.PhotoSource
	err    error
}

func (a *captureAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (a *captureAdapter) Stop(context.Context) error                          { return nil }
func (a *captureAdapter) SendText(context.Context, transport.ChatTarget, string, *transport.SendOptions) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}
func (a *captureAdapter) SendPhoto(_ context.Context, _ transport.ChatTarget, photo transport.PhotoSource, _ *transport.SendOptions) (transport.MessageRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.photos = append(a.photos, photo)
	return transport.MessageRef{}, a.err
}
func (a *captureAdapter) EditText(context.Context, transport.MessageRef, string, *transport.SendOptions) error {
	return nil
}
func (a *captureAdapter) AnswerCallback(context.Context, string, string) error { return nil }
func (a *captureAdapter) ChatAdmins(context.Context, transport.ChatTarget) ([]transport.ChatMember, error) {
	return nil, nil
}
func (a *captureAdapter) DownloadFile(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func newService(t *testing.T) (*Service, *captureAdapter, *settings.Store) {
	t.Helper()
	ad := &captureAdapter{}
	store := settings.NewStore(settings.Snapshot{
		WarningText:     "careful out there",
		WarningImage:    "./assets/warning.jpg",
		IntervalMinutes: 5,
	})
	return New(ad, store, -100, logx.Nop()), ad, store
}

func TestStartIsIdempotent(t *testing.T) {
	t.Parallel()

	s, _, _ := newService(t)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if got := s.Entries(); got != 1 {
		t.Fatalf("entries = %d, want 1", got)
	}
}

func TestRescheduleKeepsSingleEntry(t *testing.T) {
	t.Parallel()

	s, _, _ := newService(t)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)

	for _, minutes := range []int{1, 30, 30, 1440} {
		if err := s.Reschedule(minutes); err != nil {
			t.Fatalf("Reschedule(%d): %v", minutes, err)
		}
		if got := s.Entries(); got != 1 {
			t.Fatalf("entries after Reschedule(%d) = %d, want 1", minutes, got)
		}
	}
}

func TestRescheduleRejectsBadInterval(t *testing.T) {
	t.Parallel()

	s, _, _ := newService(t)
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(ctx)

	for _, minutes := range []int{0, -1, 1441} {
		if err := s.Reschedule(minutes); err == nil {
			t.Fatalf("Reschedule(%d) accepted", minutes)
		}
	}
	if got := s.Entries(); got != 1 {
		t.Fatalf("rejected reschedule disturbed entries: %d", got)
	}
}

func TestRescheduleBeforeStart(t *testing.T) {
	t.Parallel()

	s, _, _ := newService(t)
	if err := s.Reschedule(5); err == nil {
		t.Fatalf("Reschedule on stopped service accepted")
	}
}

func TestTickSendsCurrentSnapshot(t *testing.T) {
	t.Parallel()

	s, ad, store := newService(t)
	text := "updated warning"
	img := "./assets/warning_2.jpg"
	store.Apply(settings.Update{WarningText: &text, WarningImage: &img})

	s.tick(context.Background())

	ad.mu.Lock()
	defer ad.mu.Unlock()
	if len(ad.photos) != 1 {
		t.Fatalf("photos sent = %d, want 1", len(ad.photos))
	}
	if got := ad.photos[0]; got.Path != img || got.Caption != text {
		t.Fatalf("sent %+v, want current snapshot", got)
	}
}

func TestTickSwallowsSendFailure(t *testing.T) {
	t.Parallel()

	s, ad, _ := newService(t)
	ad.err = errors.New("telegram 429")
	// Must not panic or propagate.
	s.tick(context.Background())
}
