package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRouter(cooldown int) *CooldownRouter {
	return NewCooldownRouter(cooldown,
		[]string{"trend-follow", "mean-revert"},
		map[Tag][]string{
			Trending: {"trend-follow"},
			Ranging:  {"mean-revert"},
			Volatile: {},
		})
}

func TestRouterStartsEmptyUntilFirstRegime(t *testing.T) {
	r := newTestRouter(5)

	route := r.OnBar(Unknown, 0)
	assert.Empty(t, route.Active)
	assert.False(t, route.Blocked)

	route = r.OnBar(Trending, 1)
	assert.Equal(t, []string{"trend-follow"}, route.Active)
}

func TestRouterCooldownBlocksRapidFlips(t *testing.T) {
	r := newTestRouter(5)

	route := r.OnBar(Trending, 10)
	assert.Equal(t, []string{"trend-follow"}, route.Active)
	assert.Equal(t, 5, route.CooldownRemaining)

	// Flip two bars later: suppressed, active set unchanged.
	route = r.OnBar(Ranging, 12)
	assert.True(t, route.Blocked)
	assert.Equal(t, []string{"trend-follow"}, route.Active)
	assert.Equal(t, 3, route.CooldownRemaining)

	// Same regime during cooldown is not a blocked change.
	route = r.OnBar(Trending, 13)
	assert.False(t, route.Blocked)

	// Past the cooldown the change goes through.
	route = r.OnBar(Ranging, 15)
	assert.False(t, route.Blocked)
	assert.Equal(t, []string{"mean-revert"}, route.Active)
}

func TestRouterUnknownRegimeHoldsCurrentSet(t *testing.T) {
	r := newTestRouter(3)
	r.OnBar(Trending, 0)

	route := r.OnBar(Unknown, 10)
	assert.Equal(t, []string{"trend-follow"}, route.Active)
	assert.False(t, route.Blocked)
}

func TestRouterFiltersDisabledKinds(t *testing.T) {
	r := NewCooldownRouter(0, []string{"mean-revert"}, map[Tag][]string{
		Trending: {"trend-follow", "mean-revert"},
	})
	route := r.OnBar(Trending, 0)
	assert.Equal(t, []string{"mean-revert"}, route.Active)
}

func TestRouterVolatileDeactivatesAll(t *testing.T) {
	r := newTestRouter(0)
	r.OnBar(Trending, 0)

	route := r.OnBar(Volatile, 1)
	assert.Empty(t, route.Active)
}
