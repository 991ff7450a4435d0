package app

import (
	"context"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	kit "guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

// handleTimeout bounds one update's processing so a hung Telegram call
// cannot back up the whole queue.
const handleTimeout = 30 * time.Second

func (a *App) dispatchLoop(ctx context.Context) error {
	a.log.Info("dispatcher started", logx.Int("queue_cap", cap(a.updates)))
	for {
		select {
		case <-ctx.Done():
			a.log.Info("dispatcher stopped")
			return nil
		case up := <-a.updates:
			a.handleUpdate(ctx, up)
		}
	}
}

func (a *App) handleUpdate(ctx context.Context, up kit.Update) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("panic handling update",
				logx.String("kind", string(up.Kind)),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
		}
	}()
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	var err error
	switch up.Kind {
	case kit.UpdateJoin:
		if up.Join != nil {
			a.greeter.HandleJoin(hctx, up.Join)
		}
	case kit.UpdateCallback:
		if up.Callback != nil {
			err = a.wizard.HandleCallback(hctx, up.Callback)
		}
	case kit.UpdateMessage:
		if up.Message != nil {
			err = a.handleMessage(hctx, up.Message)
		}
	}
	if err != nil {
		a.log.Warn("update handling failed", logx.String("kind", string(up.Kind)), logx.Err(err))
	}
}

func (a *App) handleMessage(ctx context.Context, msg *kit.Message) error {
	if len(msg.Photos) > 0 {
		_, err := a.wizard.HandlePhoto(ctx, msg)
		return err
	}

	switch command(msg.Text) {
	case "/settings":
		return a.wizard.HandleSettings(ctx, msg)
	case "/addadmin":
		return a.handleAddAdmin(ctx, msg)
	case "/listadmins":
		return a.handleListAdmins(ctx, msg)
	}

	_, err := a.wizard.HandleText(ctx, msg)
	return err
}

// command extracts the leading slash command, dropping any @botname suffix.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return cmd
}

func (a *App) handleAddAdmin(ctx context.Context, msg *kit.Message) error {
	chat := kit.ChatTarget{ChatID: msg.ChatID}
	if !a.gate.IsAdmin(ctx, msg.FromID) {
		a.log.Info("addadmin denied", logx.Int64("user_id", msg.FromID))
		_, err := a.adapter.SendText(ctx, chat, "⛔ Sorry, only admins can add other admins.", nil)
		return err
	}

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		_, err := a.adapter.SendText(ctx, chat, "⚠️ Please provide a user ID to add as admin.\nUsage: /addadmin 123456789", nil)
		return err
	}
	newID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		_, err := a.adapter.SendText(ctx, chat, "⚠️ Invalid user ID. Please provide a valid numeric ID.", nil)
		return err
	}

	if !a.static.Add(newID) {
		_, err := a.adapter.SendText(ctx, chat, fmt.Sprintf("ℹ️ User %d is already an admin.", newID), nil)
		return err
	}
	if a.audit != nil {
		detail := fmt.Sprintf("user_id=%d", newID)
		if msg.FromUsername != "" {
			detail += " by=@" + msg.FromUsername
		}
		a.audit.Record(ctx, msg.FromID, "admin_added", detail)
	}
	a.log.Info("admin added",
		logx.Int64("by", msg.FromID),
		logx.String("by_username", msg.FromUsername),
		logx.Int64("user_id", newID))
	_, err = a.adapter.SendText(ctx, chat, fmt.Sprintf("✅ User %d has been added as an admin.", newID), nil)
	return err
}

func (a *App) handleListAdmins(ctx context.Context, msg *kit.Message) error {
	chat := kit.ChatTarget{ChatID: msg.ChatID}
	if !a.gate.IsAdmin(ctx, msg.FromID) {
		a.log.Info("listadmins denied", logx.Int64("user_id", msg.FromID))
		_, err := a.adapter.SendText(ctx, chat, "⛔ Sorry, only admins can view the admin list.", nil)
		return err
	}

	ids := a.static.List()
	if len(ids) == 0 {
		_, err := a.adapter.SendText(ctx, chat, "ℹ️ No admins are currently configured.", nil)
		return err
	}
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, strconv.FormatInt(id, 10))
	}
	_, err := a.adapter.SendText(ctx, chat, "👑 Current admins:\n"+strings.Join(lines, "\n"), nil)
	return err
}
