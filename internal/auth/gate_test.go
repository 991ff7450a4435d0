package auth

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"guardbot/internal/transport"
	logx "guardbot/pkg/logx"
)

type rosterAdapter struct {
	members []transport.ChatMember
	err     error
}

func (a *rosterAdapter) Start(context.Context, chan<- transport.Update) error { return nil }
func (a *rosterAdapter) Stop(context.Context) error                          { return nil }
func (a *rosterAdapter) SendText(context.Context, transport.ChatTarget, string, *transport.SendOptions) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}
func (a *rosterAdapter) SendPhoto(context.Context, transport.ChatTarget, transport.PhotoSource, *transport.SendOptions) (transport.MessageRef, error) {
	return transport.MessageRef{}, nil
}
func (a *rosterAdapter) EditText(context.Context, transport.MessageRef, string, *transport.SendOptions) error {
	return nil
}
func (a *rosterAdapter) AnswerCallback(context.Context, string, string) error { return nil }
func (a *rosterAdapter) ChatAdmins(context.Context, transport.ChatTarget) ([]transport.ChatMember, error) {
	return a.members, a.err
}
func (a *rosterAdapter) DownloadFile(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func TestRosterGateRoles(t *testing.T) {
	t.Parallel()

	ad := &rosterAdapter{members: []transport.ChatMember{
		{UserID: 1, Role: transport.RoleOwner},
		{UserID: 2, Role: transport.RoleAdmin},
		{UserID: 3, Role: transport.RoleMember},
	}}
	g := NewRosterGate(ad, -100, nil, logx.Nop())

	cases := []struct {
		userID int64
		want   bool
	}{
		{1, true},
		{2, true},
		{3, false}, // present but not privileged
		{4, false},
	}
	for _, tc := range cases {
		if got := g.IsAdmin(context.Background(), tc.userID); got != tc.want {
			t.Fatalf("IsAdmin(%d) = %v, want %v", tc.userID, got, tc.want)
		}
	}
}

func TestRosterGateFailClosed(t *testing.T) {
	t.Parallel()

	ad := &rosterAdapter{err: errors.New("telegram 502")}
	g := NewRosterGate(ad, -100, nil, logx.Nop())
	if g.IsAdmin(context.Background(), 1) {
		t.Fatalf("roster failure without fallback granted access")
	}
}

func TestRosterGateFallsBackToStaticList(t *testing.T) {
	t.Parallel()

	ad := &rosterAdapter{err: errors.New("telegram 502")}
	static := NewStaticGate([]int64{42}, logx.Nop())
	g := NewRosterGate(ad, -100, static, logx.Nop())

	if !g.IsAdmin(context.Background(), 42) {
		t.Fatalf("configured admin denied during roster outage")
	}
	if g.IsAdmin(context.Background(), 7) {
		t.Fatalf("unknown user granted during roster outage")
	}
}

// A roster outage with an empty fallback list must deny everyone. The
// error path is a plain membership lookup; the StaticGate bootstrap
// enrollment is reachable only through StaticGate.IsAdmin directly.
func TestRosterGateOutageEmptyFallbackDeniesAndDoesNotEnroll(t *testing.T) {
	t.Parallel()

	ad := &rosterAdapter{err: errors.New("telegram 502")}
	static := NewStaticGate(nil, logx.Nop())
	g := NewRosterGate(ad, -100, static, logx.Nop())

	if g.IsAdmin(context.Background(), 31337) {
		t.Fatalf("stranger granted during roster outage with empty admin list")
	}
	if static.Contains(31337) {
		t.Fatalf("stranger enrolled through the roster error path")
	}
	if got := static.List(); len(got) != 0 {
		t.Fatalf("fallback list mutated during outage: %v", got)
	}
}

func TestStaticGateMembership(t *testing.T) {
	t.Parallel()

	g := NewStaticGate([]int64{10, 20}, logx.Nop())
	if !g.IsAdmin(context.Background(), 10) {
		t.Fatalf("seeded admin denied")
	}
	if g.IsAdmin(context.Background(), 30) {
		t.Fatalf("unknown user allowed")
	}
}

// An empty list enrolls the first claimant. This is deliberately permissive
// bootstrap behavior: until someone claims admin, anyone can. Deployments
// that care should seed admin IDs in config or env.
func TestStaticGateAutoEnrollsFirstClaimant(t *testing.T) {
	t.Parallel()

	g := NewStaticGate(nil, logx.Nop())
	if !g.IsAdmin(context.Background(), 99) {
		t.Fatalf("first claimant denied on empty list")
	}
	// The window closes after the first claim.
	if g.IsAdmin(context.Background(), 7) {
		t.Fatalf("second claimant allowed after enrollment")
	}
	if !g.IsAdmin(context.Background(), 99) {
		t.Fatalf("enrolled claimant lost access")
	}
}

func TestStaticGateAddAndList(t *testing.T) {
	t.Parallel()

	g := NewStaticGate([]int64{20}, logx.Nop())
	if !g.Add(10) {
		t.Fatalf("Add(10) = false on fresh ID")
	}
	if g.Add(10) {
		t.Fatalf("Add(10) = true on duplicate")
	}
	if got := g.List(); !reflect.DeepEqual(got, []int64{10, 20}) {
		t.Fatalf("List() = %v, want [10 20]", got)
	}
}

func TestStaticGateReplace(t *testing.T) {
	t.Parallel()

	g := NewStaticGate([]int64{1}, logx.Nop())
	g.Replace([]int64{2, 3})
	if g.IsAdmin(context.Background(), 1) {
		t.Fatalf("replaced-out admin still allowed")
	}
	if !g.IsAdmin(context.Background(), 2) {
		t.Fatalf("replaced-in admin denied")
	}
}
