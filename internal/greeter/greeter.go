// Package greeter welcomes members joining the monitored group.
package greeter

import (
	"context"
	"fmt"

	"guardbot/internal/settings"
	"guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

type Greeter struct {
	ad    transport.Adapter
	store *settings.Store
	log   logx.Logger
}

func New(ad transport.Adapter, store *settings.Store, log logx.Logger) *Greeter {
	return &Greeter{ad: ad, store: store, log: log}
}

// HandleJoin greets each joining user individually. A failed send for one
// user never blocks greetings for the rest of the batch.
func (g *Greeter) HandleJoin(ctx context.Context, join *transport.Join) {
	greeting := g.store.Get().Greeting
	for _, u := range join.Users {
		name := displayName(u)
		text := fmt.Sprintf("%s %s", greeting, name)
		if _, err := g.ad.SendText(ctx, transport.ChatTarget{ChatID: join.ChatID}, text, nil); err != nil {
			g.log.Warn("greeting failed", logx.Int64("user_id", u.ID), logx.Err(err))
			continue
		}
		g.log.Debug("greeted new member", logx.Int64("user_id", u.ID), logx.String("name", name))
	}
}

func displayName(u transport.User) string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "there"
}
