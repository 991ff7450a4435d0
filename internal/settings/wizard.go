package settings

import (
	"context"
	"errors"
	"fmt"
	"io"

	"guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

// Authorizer answers whether a user may use admin commands.
type Authorizer interface {
	IsAdmin(ctx context.Context, userID int64) bool
}

// Rescheduler re-arms the periodic warning broadcast.
type Rescheduler interface {
	Reschedule(minutes int) error
}

// ImageSaver persists uploaded image bytes and returns the stored path.
type ImageSaver interface {
	Save(data []byte) (string, error)
}

// AuditSink records admin actions. Implementations must tolerate a nil
// receiver check being skipped; the wizard guards nil itself.
type AuditSink interface {
	Record(ctx context.Context, actorID int64, action, detail string)
}

// Wizard drives the admin-only /settings flow: a menu message edited in
// place for callback steps, plus free-form text and photo input steps
// tracked per user in States.
type Wizard struct {
	ad     transport.Adapter
	gate   Authorizer
	states *States
	store  *Store
	sched  Rescheduler
	images ImageSaver
	audit  AuditSink
	log    logx.Logger
}

func NewWizard(ad transport.Adapter, gate Authorizer, states *States, store *Store, sched Rescheduler, images ImageSaver, audit AuditSink, log logx.Logger) *Wizard {
	return &Wizard{ad: ad, gate: gate, states: states, store: store, sched: sched, images: images, audit: audit, log: log}
}

func (w *Wizard) record(ctx context.Context, actorID int64, action, detail string) {
	if w.audit == nil {
		return
	}
	w.audit.Record(ctx, actorID, action, detail)
}

// HandleSettings answers the /settings command: admins get the menu,
// everyone else gets a fixed denial.
func (w *Wizard) HandleSettings(ctx context.Context, msg *transport.Message) error {
	if !w.gate.IsAdmin(ctx, msg.FromID) {
		w.log.Info("settings denied", logx.Int64("user_id", msg.FromID))
		_, err := w.ad.SendText(ctx, transport.ChatTarget{ChatID: msg.ChatID}, replyDenied, nil)
		return err
	}
	snap := w.store.Get()
	_, err := w.ad.SendText(ctx, transport.ChatTarget{ChatID: msg.ChatID}, menuTitle, &transport.SendOptions{
		ReplyMarkupAdapter: mainMenu(snap),
	})
	if err != nil {
		return fmt.Errorf("send settings menu: %w", err)
	}
	w.log.Debug("settings menu opened", logx.Int64("user_id", msg.FromID))
	return nil
}

// HandleCallback processes a wizard keyboard press. The callback is always
// answered so the client spinner stops; malformed or unauthorized presses
// change no state.
func (w *Wizard) HandleCallback(ctx context.Context, cb *transport.Callback) error {
	act, err := ParseCallback(cb.Data)
	if err != nil {
		if errors.Is(err, ErrMalformedPayload) {
			w.log.Debug("callback rejected", logx.Int64("user_id", cb.FromID), logx.Err(err))
			return w.ad.AnswerCallback(ctx, cb.ID, "Invalid callback")
		}
		return err
	}
	if !w.gate.IsAdmin(ctx, cb.FromID) {
		w.log.Info("settings callback denied", logx.Int64("user_id", cb.FromID))
		return w.ad.AnswerCallback(ctx, cb.ID, replyDeniedCb)
	}
	if err := w.ad.AnswerCallback(ctx, cb.ID, ""); err != nil {
		w.log.Warn("answer callback", logx.Err(err))
	}

	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	switch act.Kind {
	case KindCancel:
		w.states.Delete(cb.FromID)
		return w.ad.EditText(ctx, ref, menuCancelled, nil)

	case KindChooseInterval:
		w.states.Set(cb.FromID, StateAwaitingInterval, cb.MessageID)
		return w.ad.EditText(ctx, ref, promptInterval, &transport.SendOptions{ReplyMarkupAdapter: intervalMenu()})

	case KindChooseText:
		w.states.Set(cb.FromID, StateAwaitingText, cb.MessageID)
		snap := w.store.Get()
		return w.ad.EditText(ctx, ref, promptTextHead+snap.WarningText, &transport.SendOptions{ReplyMarkupAdapter: cancelOnly()})

	case KindChooseImage:
		w.states.Set(cb.FromID, StateAwaitingImage, cb.MessageID)
		return w.ad.EditText(ctx, ref, promptImage, &transport.SendOptions{ReplyMarkupAdapter: cancelOnly()})

	case KindPickInterval:
		text := w.applyInterval(ctx, cb.FromID, act.Minutes)
		w.states.Delete(cb.FromID)
		return w.ad.EditText(ctx, ref, text, nil)
	}
	return nil
}

// HandleText consumes a free-form message when the sender has a pending
// text or interval step. It reports whether the message was consumed.
func (w *Wizard) HandleText(ctx context.Context, msg *transport.Message) (bool, error) {
	st, _, ok := w.states.Get(msg.FromID)
	if !ok {
		return false, nil
	}
	chat := transport.ChatTarget{ChatID: msg.ChatID}

	switch st {
	case StateAwaitingText:
		if reason := ValidateWarningText(msg.Text); reason != "" {
			// Keep the state so the admin can retry without reopening the menu.
			reply := "⚠️ Message cannot be empty. Please send the warning message text."
			if reason == reasonTextTooLong {
				reply = fmt.Sprintf("⚠️ Message is too long. Maximum length is %d characters.", MaxWarningTextLen)
			}
			_, err := w.ad.SendText(ctx, chat, reply, nil)
			return true, err
		}
		clean := SanitizeWarningText(msg.Text)
		w.store.Apply(Update{WarningText: &clean})
		w.record(ctx, msg.FromID, "warning_text_updated", actorDetail(msg, fmt.Sprintf("len=%d", len(clean))))
		w.log.Info("warning text updated", logx.Int64("user_id", msg.FromID))
		w.states.Delete(msg.FromID)
		_, err := w.ad.SendText(ctx, chat, replyTextOK, nil)
		return true, err

	case StateAwaitingInterval:
		minutes, reason := ParseIntervalInput(msg.Text)
		if reason != "" {
			var reply string
			switch reason {
			case reasonIntervalTooLarge:
				reply = fmt.Sprintf("⚠️ Interval too large. Maximum allowed is %d minutes (24 hours)", MaxIntervalMinutes)
			default:
				reply = "⚠️ Please provide a valid interval in minutes (minimum 1)"
			}
			_, err := w.ad.SendText(ctx, chat, reply, nil)
			return true, err
		}
		text := w.applyInterval(ctx, msg.FromID, minutes)
		w.states.Delete(msg.FromID)
		_, err := w.ad.SendText(ctx, chat, text, nil)
		return true, err
	}
	return false, nil
}

// HandlePhoto consumes an uploaded photo when the sender has a pending
// image step. A failed fetch or save keeps the state so the admin can
// simply send another photo.
func (w *Wizard) HandlePhoto(ctx context.Context, msg *transport.Message) (bool, error) {
	st, _, ok := w.states.Get(msg.FromID)
	if !ok || st != StateAwaitingImage {
		return false, nil
	}
	chat := transport.ChatTarget{ChatID: msg.ChatID}
	if len(msg.Photos) == 0 {
		return false, nil
	}
	// Highest-resolution variant is last.
	fileID := msg.Photos[len(msg.Photos)-1].FileID

	path, err := w.saveImage(ctx, fileID)
	if err != nil {
		w.log.Error("warning image update failed", logx.Int64("user_id", msg.FromID), logx.Err(err))
		_, sendErr := w.ad.SendText(ctx, chat, replyImageFail, nil)
		return true, sendErr
	}

	w.store.Apply(Update{WarningImage: &path})
	w.record(ctx, msg.FromID, "warning_image_updated", actorDetail(msg, path))
	w.log.Info("warning image updated", logx.Int64("user_id", msg.FromID), logx.String("path", path))
	w.states.Delete(msg.FromID)
	_, err = w.ad.SendText(ctx, chat, replyImageOK, nil)
	return true, err
}

// actorDetail tags an audit detail with the sender's username when Telegram
// provides one; bare IDs are hard to read back in the audit log.
func actorDetail(msg *transport.Message, detail string) string {
	if msg.FromUsername == "" {
		return detail
	}
	return detail + " by=@" + msg.FromUsername
}

func (w *Wizard) saveImage(ctx context.Context, fileID string) (string, error) {
	rc, err := w.ad.DownloadFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("download photo: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	path, err := w.images.Save(data)
	if err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return path, nil
}

// applyInterval commits the new interval and re-arms the broadcaster. A
// reschedule failure is reported but never rolls the setting back: the
// stored value is correct and survives a restart of the schedule.
func (w *Wizard) applyInterval(ctx context.Context, actorID int64, minutes int) string {
	w.store.Apply(Update{IntervalMinutes: &minutes})
	w.record(ctx, actorID, "interval_updated", fmt.Sprintf("minutes=%d", minutes))
	if err := w.sched.Reschedule(minutes); err != nil {
		w.log.Error("reschedule after interval update", logx.Int("minutes", minutes), logx.Err(err))
		return replyReschedBad
	}
	w.log.Info("interval updated", logx.Int64("user_id", actorID), logx.Int("minutes", minutes))
	return fmt.Sprintf("✅ Warning message interval updated to %d minutes", minutes)
}
