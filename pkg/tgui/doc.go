// Package tgui provides small helpers for Telegram inline keyboards and
// callback data ("scope:action:payload") shared by handlers.
package tgui
