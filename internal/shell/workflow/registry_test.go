package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/artpar/showroom/internal/core/auth"
	"github.com/artpar/showroom/internal/core/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRegistry(s *fakeStore, clock *fakeClock) *Registry {
	return NewRegistry(RegistryConfig{
		Store:  s,
		Logger: quietLogger(),
		Now:    clock.Now,
	})
}

func actorCtx(userID string) context.Context {
	return auth.WithContext(context.Background(), auth.ForUser(userID))
}

func TestRegistry_OpenAndGet(t *testing.T) {
	r := newTestRegistry(newFakeStore(sampleProduct()), &fakeClock{now: time.Now()})

	sess := r.Open("u1")
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get(sess.ID, "u1")
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = r.Get("unknown", "u1")
	assert.False(t, ok)
}

func TestRegistry_GetOtherActor(t *testing.T) {
	r := newTestRegistry(newFakeStore(sampleProduct()), &fakeClock{now: time.Now()})
	sess := r.Open("u1")

	_, ok := r.Get(sess.ID, "u2")
	assert.False(t, ok)
	_, ok = r.Get(sess.ID, "")
	assert.False(t, ok)
}

func TestRegistry_UsesRequestIdentity(t *testing.T) {
	r := newTestRegistry(newFakeStore(sampleProduct()), &fakeClock{now: time.Now()})

	owner := r.Open("u1")
	require.NoError(t, owner.Workflow.Enter(actorCtx("u1"), "p1"))
	v, _ := owner.Workflow.State()
	assert.Equal(t, editor.PhaseEditing, v.Phase)

	stranger := r.Open("u2")
	require.NoError(t, stranger.Workflow.Enter(actorCtx("u2"), "p1"))
	v, _ = stranger.Workflow.State()
	assert.Equal(t, editor.PhaseUnauthorized, v.Phase)
}

func TestRegistry_SuccessfulSubmitRemovesSession(t *testing.T) {
	r := newTestRegistry(newFakeStore(sampleProduct()), &fakeClock{now: time.Now()})
	sess := r.Open("u1")
	ctx := actorCtx("u1")
	require.NoError(t, sess.Workflow.Enter(ctx, "p1"))

	require.NoError(t, sess.Workflow.Submit(ctx))

	assert.Equal(t, HomePath, sess.Redirect())
	_, ok := r.Get(sess.ID, "u1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Remove(t *testing.T) {
	r := newTestRegistry(newFakeStore(sampleProduct()), &fakeClock{now: time.Now()})
	sess := r.Open("u1")
	require.NoError(t, sess.Workflow.Enter(actorCtx("u1"), "p1"))

	assert.True(t, r.Remove(sess.ID))
	assert.False(t, r.Remove(sess.ID))

	_, open := sess.Workflow.State()
	assert.False(t, open)
}

func TestRegistry_ReapIdle(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	r := newTestRegistry(newFakeStore(sampleProduct()), clock)

	old := r.Open("u1")
	clock.Advance(20 * time.Minute)
	fresh := r.Open("u1")
	clock.Advance(5 * time.Minute)

	reaped := r.ReapIdle(15 * time.Minute)

	assert.Equal(t, 1, reaped)
	_, ok := r.Get(old.ID, "u1")
	assert.False(t, ok)
	_, ok = r.Get(fresh.ID, "u1")
	assert.True(t, ok)
}

func TestRegistry_GetKeepsSessionAlive(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	r := newTestRegistry(newFakeStore(sampleProduct()), clock)
	sess := r.Open("u1")

	clock.Advance(10 * time.Minute)
	_, ok := r.Get(sess.ID, "u1")
	require.True(t, ok)
	clock.Advance(10 * time.Minute)

	assert.Equal(t, 0, r.ReapIdle(15*time.Minute))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_CloseAll(t *testing.T) {
	r := newTestRegistry(newFakeStore(sampleProduct()), &fakeClock{now: time.Now()})
	a := r.Open("u1")
	r.Open("u1")
	require.NoError(t, a.Workflow.Enter(actorCtx("u1"), "p1"))

	r.CloseAll()

	assert.Equal(t, 0, r.Len())
	_, open := a.Workflow.State()
	assert.False(t, open)
}
