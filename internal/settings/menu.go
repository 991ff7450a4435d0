package settings

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"guardbot/pkg/tgui"
)

// intervalPresets are the quick-pick broadcast intervals, in minutes.
var intervalPresets = []int{1, 5, 10, 30, 60, 120, 360, 720}

const (
	menuTitle       = "⚙️ Bot Settings"
	menuCancelled   = "⚙️ Settings cancelled"
	promptInterval  = "⏱️ Enter the new interval in minutes (minimum 1):"
	promptTextHead  = "📝 Please send the new warning message text in your next message.\n\nCurrent text:\n"
	promptImage     = "🖼️ Please send the new warning image in your next message."
	replyDenied     = "⛔ Sorry, only admins can use this command."
	replyDeniedCb   = "⛔ Sorry, only admins can use these settings."
	replyTextOK     = "✅ Warning message text updated successfully"
	replyImageOK    = "✅ Warning image updated successfully"
	replyImageFail  = "❌ Failed to update image. Please try again."
	replyReschedBad = "⚠️ Interval updated, but failed to reschedule warning messages. Please restart the bot."
)

func cancelBtn() tele.Btn {
	return tgui.Btn("❌ Cancel", tgui.Data(scopeSettings, actionCancel, ""))
}

// mainMenu builds the /settings keyboard. The interval button surfaces the
// current value so admins see the live setting without opening the submenu.
func mainMenu(snap Snapshot) *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn(fmt.Sprintf("📊 Interval (%d min)", snap.IntervalMinutes), tgui.Data(scopeSettings, actionInterval, ""))).
		Row(tgui.Btn("📝 Warning Message", tgui.Data(scopeSettings, actionText, ""))).
		Row(tgui.Btn("🖼️ Warning Image", tgui.Data(scopeSettings, actionImage, ""))).
		Row(cancelBtn()).
		Markup()
}

// intervalMenu builds the preset grid, four per row, with a cancel row.
func intervalMenu() *tele.ReplyMarkup {
	btns := make([]tele.Btn, 0, len(intervalPresets))
	for _, m := range intervalPresets {
		btns = append(btns, tgui.Btn(fmt.Sprintf("%d", m), tgui.Data(scopeInterval, fmt.Sprintf("%d", m), "")))
	}
	i := tgui.NewInline()
	tgui.Grid(i, 4, btns)
	return i.Row(cancelBtn()).Markup()
}

// cancelOnly is the single-button keyboard attached to input prompts.
func cancelOnly() *tele.ReplyMarkup {
	return tgui.NewInline().Row(cancelBtn()).Markup()
}
