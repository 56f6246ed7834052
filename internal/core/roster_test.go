package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/gamerz-app/gamerz/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// fakeOutbound records delivered frames and can be made to fail.
type fakeOutbound struct {
	mu     sync.Mutex
	frames []Frame
	fail   bool
}

func (f *fakeOutbound) TrySend(frame Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return ErrConnClosed
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeOutbound) Close() {}

func (f *fakeOutbound) received() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Frame, len(f.frames))
	copy(out, f.frames)
	return out
}

func newMember(t *testing.T, registry *Registry, username string, status domain.ApprovalStatus) (ConnID, *fakeOutbound) {
	t.Helper()
	conn := ConnID(uuid.NewString())
	err := registry.Register(conn, Identity{
		UserID:   domain.UserID(uuid.NewString()),
		Username: username,
		Status:   status,
	})
	require.NoError(t, err)
	return conn, &fakeOutbound{}
}

func TestRoster_Join_Requires_Approval(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roster := NewRoster(registry)
	room := domain.RoomID("fps-legends")

	for _, status := range []domain.ApprovalStatus{domain.StatusPending, domain.StatusRejected, domain.StatusBanned} {
		conn, out := newMember(t, registry, "carol", status)

		// When a non-approved identity attempts to join
		err := roster.Join(room, conn, out)

		// Then the join is denied and no membership is recorded
		var perm *PermissionError
		req.ErrorAs(err, &perm)
		req.Equal(status, perm.Status)
		req.False(roster.IsMember(room, conn))
		req.Zero(roster.MemberCount(room))
	}
}

func TestRoster_Join_Denied_Without_Registration(t *testing.T) {
	req := require.New(t)
	roster := NewRoster(NewRegistry())

	err := roster.Join(domain.RoomID("fps-legends"), ConnID("ghost"), &fakeOutbound{})

	req.ErrorIs(err, ErrNotRegistered)
}

func TestRoster_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roster := NewRoster(registry)
	room := domain.RoomID("fps-legends")
	conn, out := newMember(t, registry, "alice", domain.StatusApproved)

	// When joining the same room twice
	req.NoError(roster.Join(room, conn, out))
	req.NoError(roster.Join(room, conn, out))

	// Then the member appears exactly once
	req.Equal(1, roster.MemberCount(room))
	members := roster.MembersOf(room)
	req.Len(members, 1)
	req.Equal(conn, members[0].Conn)
}

func TestRoster_Leave_Unknown_Room_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roster := NewRoster(registry)
	conn, _ := newMember(t, registry, "alice", domain.StatusApproved)

	// Leaving a room one never joined must not error or mutate anything
	roster.Leave(domain.RoomID("nowhere"), conn)

	req.Empty(roster.RoomsOf(conn))
}

func TestRoster_Membership_Across_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roster := NewRoster(registry)
	conn, out := newMember(t, registry, "alice", domain.StatusApproved)
	fps := domain.RoomID("fps-legends")
	rts := domain.RoomID("rts-corner")

	req.NoError(roster.Join(fps, conn, out))
	req.NoError(roster.Join(rts, conn, out))

	req.ElementsMatch([]domain.RoomID{fps, rts}, roster.RoomsOf(conn))

	roster.Leave(fps, conn)
	req.ElementsMatch([]domain.RoomID{rts}, roster.RoomsOf(conn))
	req.False(roster.IsMember(fps, conn))
	req.True(roster.IsMember(rts, conn))
}

func TestRoster_PurgeConnection_Removes_Everywhere(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roster := NewRoster(registry)
	conn, out := newMember(t, registry, "alice", domain.StatusApproved)
	fps := domain.RoomID("fps-legends")
	rts := domain.RoomID("rts-corner")
	req.NoError(roster.Join(fps, conn, out))
	req.NoError(roster.Join(rts, conn, out))

	// When the connection is purged
	rooms := roster.PurgeConnection(conn)

	// Then it reports the rooms left and membership is gone everywhere
	req.ElementsMatch([]domain.RoomID{fps, rts}, rooms)
	req.Zero(roster.MemberCount(fps))
	req.Zero(roster.MemberCount(rts))
	req.Empty(roster.RoomsOf(conn))

	// And a second purge finds nothing left to do
	req.Empty(roster.PurgeConnection(conn))
}

func TestRoster_Purge_Concurrent_With_Broadcast(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	roster := NewRoster(registry)
	engine := NewEngine(roster)
	room := domain.RoomID("fps-legends")

	conns := make([]ConnID, 0, 8)
	for i := 0; i < 8; i++ {
		conn, out := newMember(t, registry, "player", domain.StatusApproved)
		req.NoError(roster.Join(room, conn, out))
		conns = append(conns, conn)
	}

	// When broadcasts race with purges, iteration must stay consistent
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				engine.BroadcastMessage(domain.Message{Room: room, Content: "gg"})
			}
		}()
	}
	for _, conn := range conns[:4] {
		wg.Add(1)
		go func(c ConnID) {
			defer wg.Done()
			roster.PurgeConnection(c)
		}(conn)
	}
	wg.Wait()

	// Then exactly the purged members are gone
	req.Equal(4, roster.MemberCount(room))
	for _, conn := range conns[:4] {
		req.False(roster.IsMember(room, conn))
	}
}

func TestFakeOutbound_Failure(t *testing.T) {
	out := &fakeOutbound{fail: true}
	require.True(t, errors.Is(out.TrySend(Frame("x")), ErrConnClosed))
}
