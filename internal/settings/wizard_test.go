package settings

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

type fakeAdapter struct {
	mu        sync.Mutex
	sent      []string
	edits     []string
	answers   []string
	files     map[string][]byte
	fileErr   error
	nextMsgID int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{files: map[string][]byte{}}
}

func (f *fakeAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                          { return nil }

func (f *fakeAdapter) SendText(_ context.Context, _ transport.ChatTarget, text string, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.nextMsgID++
	return transport.MessageRef{MessageID: f.nextMsgID}, nil
}

func (f *fakeAdapter) SendPhoto(_ context.Context, _ transport.ChatTarget, photo transport.PhotoSource, _ *transport.SendOptions) (transport.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, "photo:"+photo.Path)
	return transport.MessageRef{}, nil
}

func (f *fakeAdapter) EditText(_ context.Context, _ transport.MessageRef, text string, _ *transport.SendOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeAdapter) AnswerCallback(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeAdapter) ChatAdmins(context.Context, transport.ChatTarget) ([]transport.ChatMember, error) {
	return nil, nil
}

func (f *fakeAdapter) DownloadFile(_ context.Context, fileID string) (io.ReadCloser, error) {
	if f.fileErr != nil {
		return nil, f.fileErr
	}
	data, ok := f.files[fileID]
	if !ok {
		return nil, errors.New("unknown file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeAdapter) lastSent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAdapter) lastEdit() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return ""
	}
	return f.edits[len(f.edits)-1]
}

type allowGate bool

func (g allowGate) IsAdmin(context.Context, int64) bool { return bool(g) }

type fakeSched struct {
	mu      sync.Mutex
	minutes []int
	err     error
}

func (s *fakeSched) Reschedule(minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minutes = append(s.minutes, minutes)
	return s.err
}

type fakeSaver struct {
	saved [][]byte
	path  string
	err   error
}

func (s *fakeSaver) Save(data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, data)
	return s.path, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
	details []string
}

func (a *fakeAudit) Record(_ context.Context, _ int64, action, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	a.details = append(a.details, detail)
}

type wizardFixture struct {
	ad     *fakeAdapter
	states *States
	store  *Store
	sched  *fakeSched
	saver  *fakeSaver
	audit  *fakeAudit
	w      *Wizard
}

func newWizardFixture(admin bool) *wizardFixture {
	f := &wizardFixture{
		ad:     newFakeAdapter(),
		states: NewStates(),
		store: NewStore(Snapshot{
			Greeting:        "Hello",
			WarningText:     "stay safe",
			WarningImage:    "./assets/warning.jpg",
			IntervalMinutes: 5,
		}),
		sched: &fakeSched{},
		saver: &fakeSaver{path: "./assets/warning_1.jpg"},
		audit: &fakeAudit{},
	}
	f.w = NewWizard(f.ad, allowGate(admin), f.states, f.store, f.sched, f.saver, f.audit, logx.Nop())
	return f
}

func msg(userID int64, text string) *transport.Message {
	return &transport.Message{ID: 1, ChatID: -100, FromID: userID, Text: text}
}

func cb(userID int64, data string) *transport.Callback {
	return &transport.Callback{ID: "cb1", FromID: userID, ChatID: -100, MessageID: 9, Data: data}
}

func TestSettingsCommandDeniedForNonAdmin(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(false)

	if err := f.w.HandleSettings(context.Background(), msg(7, "/settings")); err != nil {
		t.Fatalf("HandleSettings: %v", err)
	}
	if got := f.ad.lastSent(); got != replyDenied {
		t.Fatalf("reply = %q, want denial", got)
	}
	if f.states.Len() != 0 {
		t.Fatalf("denied command created state")
	}
}

func TestSettingsCommandOpensMenu(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)

	if err := f.w.HandleSettings(context.Background(), msg(7, "/settings")); err != nil {
		t.Fatalf("HandleSettings: %v", err)
	}
	if got := f.ad.lastSent(); got != menuTitle {
		t.Fatalf("reply = %q, want menu title", got)
	}
}

func TestCallbackMalformedPayload(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingText, 9)

	if err := f.w.HandleCallback(context.Background(), cb(7, "settings:reboot")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if got := f.ad.answers; len(got) != 1 || got[0] != "Invalid callback" {
		t.Fatalf("answers = %v, want invalid-callback ack", got)
	}
	// A bad payload must not disturb an existing session.
	if st, _, ok := f.states.Get(7); !ok || st != StateAwaitingText {
		t.Fatalf("state after malformed payload = %v, %v", st, ok)
	}
}

func TestCallbackDeniedForNonAdmin(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(false)

	if err := f.w.HandleCallback(context.Background(), cb(7, "settings:text")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if got := f.ad.answers; len(got) != 1 || got[0] != replyDeniedCb {
		t.Fatalf("answers = %v, want denial ack", got)
	}
	if f.states.Len() != 0 {
		t.Fatalf("denied callback created state")
	}
}

func TestCallbackTextPromptShowsCurrentText(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)

	if err := f.w.HandleCallback(context.Background(), cb(7, "settings:text")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if st, _, ok := f.states.Get(7); !ok || st != StateAwaitingText {
		t.Fatalf("state = %v, %v; want awaiting_text", st, ok)
	}
	if got := f.ad.lastEdit(); !strings.Contains(got, "stay safe") {
		t.Fatalf("prompt %q does not include current text", got)
	}
}

func TestCallbackCancelClearsState(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingImage, 9)

	if err := f.w.HandleCallback(context.Background(), cb(7, "settings:cancel")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if f.states.Len() != 0 {
		t.Fatalf("cancel left state behind")
	}
	if got := f.ad.lastEdit(); got != menuCancelled {
		t.Fatalf("edit = %q, want cancelled notice", got)
	}
}

func TestCallbackIntervalPick(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingInterval, 9)

	if err := f.w.HandleCallback(context.Background(), cb(7, "interval:30")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if got := f.store.Get().IntervalMinutes; got != 30 {
		t.Fatalf("IntervalMinutes = %d, want 30", got)
	}
	if got := f.sched.minutes; len(got) != 1 || got[0] != 30 {
		t.Fatalf("reschedule calls = %v, want [30]", got)
	}
	if f.states.Len() != 0 {
		t.Fatalf("interval pick left state behind")
	}
	if got := f.ad.lastEdit(); !strings.Contains(got, "30 minutes") {
		t.Fatalf("edit = %q, want confirmation", got)
	}
	if got := f.audit.actions; len(got) != 1 || got[0] != "interval_updated" {
		t.Fatalf("audit = %v", got)
	}
}

func TestIntervalRescheduleFailureKeepsValue(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.sched.err = errors.New("cron broken")

	if err := f.w.HandleCallback(context.Background(), cb(7, "interval:10")); err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if got := f.store.Get().IntervalMinutes; got != 10 {
		t.Fatalf("IntervalMinutes = %d, want 10 despite reschedule failure", got)
	}
	if got := f.ad.lastEdit(); got != replyReschedBad {
		t.Fatalf("edit = %q, want reschedule warning", got)
	}
}

func TestTextInputUpdatesWarning(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingText, 9)

	handled, err := f.w.HandleText(context.Background(), msg(7, "new ***warning***"))
	if err != nil || !handled {
		t.Fatalf("HandleText = %v, %v", handled, err)
	}
	if got := f.store.Get().WarningText; got != "new **warning**" {
		t.Fatalf("WarningText = %q, want sanitized input", got)
	}
	if f.states.Len() != 0 {
		t.Fatalf("successful update left state behind")
	}
	if got := f.ad.lastSent(); got != replyTextOK {
		t.Fatalf("reply = %q", got)
	}
}

func TestTextUpdateAuditIncludesUsername(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingText, 9)

	m := msg(7, "new warning")
	m.FromUsername = "mallory"
	if _, err := f.w.HandleText(context.Background(), m); err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if got := f.audit.actions; len(got) != 1 || got[0] != "warning_text_updated" {
		t.Fatalf("audit actions = %v", got)
	}
	if got := f.audit.details[0]; !strings.Contains(got, "by=@mallory") {
		t.Fatalf("audit detail = %q, want username tag", got)
	}
}

func TestTextInputTooLongKeepsState(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingText, 9)

	handled, err := f.w.HandleText(context.Background(), msg(7, strings.Repeat("a", MaxWarningTextLen+1)))
	if err != nil || !handled {
		t.Fatalf("HandleText = %v, %v", handled, err)
	}
	if got := f.store.Get().WarningText; got != "stay safe" {
		t.Fatalf("rejected input changed stored text: %q", got)
	}
	if st, _, ok := f.states.Get(7); !ok || st != StateAwaitingText {
		t.Fatalf("state after rejection = %v, %v; want retained", st, ok)
	}
}

func TestTextInputBlankKeepsState(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingText, 9)

	handled, err := f.w.HandleText(context.Background(), msg(7, "   \n\t"))
	if err != nil || !handled {
		t.Fatalf("HandleText = %v, %v", handled, err)
	}
	if got := f.ad.lastSent(); !strings.Contains(got, "cannot be empty") {
		t.Fatalf("reply = %q, want empty-message rejection", got)
	}
	if got := f.store.Get().WarningText; got != "stay safe" {
		t.Fatalf("blank input changed stored text: %q", got)
	}
	if st, _, ok := f.states.Get(7); !ok || st != StateAwaitingText {
		t.Fatalf("state after rejection = %v, %v; want retained", st, ok)
	}
}

func TestManualIntervalInput(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingInterval, 9)

	handled, err := f.w.HandleText(context.Background(), msg(7, "fast"))
	if err != nil || !handled {
		t.Fatalf("HandleText = %v, %v", handled, err)
	}
	if st, _, ok := f.states.Get(7); !ok || st != StateAwaitingInterval {
		t.Fatalf("invalid input cleared state")
	}

	handled, err = f.w.HandleText(context.Background(), msg(7, "45"))
	if err != nil || !handled {
		t.Fatalf("HandleText = %v, %v", handled, err)
	}
	if got := f.store.Get().IntervalMinutes; got != 45 {
		t.Fatalf("IntervalMinutes = %d, want 45", got)
	}
	if f.states.Len() != 0 {
		t.Fatalf("valid input left state behind")
	}
}

func TestTextWithoutSessionIgnored(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)

	handled, err := f.w.HandleText(context.Background(), msg(7, "just chatting"))
	if err != nil {
		t.Fatalf("HandleText: %v", err)
	}
	if handled {
		t.Fatalf("message consumed without a pending step")
	}
	if len(f.ad.sent) != 0 {
		t.Fatalf("unexpected replies: %v", f.ad.sent)
	}
}

func TestPhotoInputSavesImage(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingImage, 9)
	f.ad.files["file-big"] = []byte("jpegbytes")

	m := msg(7, "")
	m.Photos = []transport.PhotoSize{
		{FileID: "file-small", Width: 90, Height: 90},
		{FileID: "file-big", Width: 800, Height: 800},
	}
	handled, err := f.w.HandlePhoto(context.Background(), m)
	if err != nil || !handled {
		t.Fatalf("HandlePhoto = %v, %v", handled, err)
	}
	if got := f.store.Get().WarningImage; got != "./assets/warning_1.jpg" {
		t.Fatalf("WarningImage = %q", got)
	}
	if len(f.saver.saved) != 1 || string(f.saver.saved[0]) != "jpegbytes" {
		t.Fatalf("saved bytes = %v", f.saver.saved)
	}
	if f.states.Len() != 0 {
		t.Fatalf("successful upload left state behind")
	}
}

func TestPhotoDownloadFailureRetainsState(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)
	f.states.Set(7, StateAwaitingImage, 9)
	f.ad.fileErr = errors.New("telegram 5xx")

	m := msg(7, "")
	m.Photos = []transport.PhotoSize{{FileID: "file-big"}}
	handled, err := f.w.HandlePhoto(context.Background(), m)
	if err != nil || !handled {
		t.Fatalf("HandlePhoto = %v, %v", handled, err)
	}
	if got := f.ad.lastSent(); got != replyImageFail {
		t.Fatalf("reply = %q", got)
	}
	// The admin can retry by sending another photo.
	if st, _, ok := f.states.Get(7); !ok || st != StateAwaitingImage {
		t.Fatalf("state after failed upload = %v, %v; want retained", st, ok)
	}
	if got := f.store.Get().WarningImage; got != "./assets/warning.jpg" {
		t.Fatalf("failed upload changed image path: %q", got)
	}
}

func TestPhotoWithoutSessionIgnored(t *testing.T) {
	t.Parallel()
	f := newWizardFixture(true)

	m := msg(7, "")
	m.Photos = []transport.PhotoSize{{FileID: "file-big"}}
	handled, err := f.w.HandlePhoto(context.Background(), m)
	if err != nil {
		t.Fatalf("HandlePhoto: %v", err)
	}
	if handled {
		t.Fatalf("photo consumed without a pending image step")
	}
}
