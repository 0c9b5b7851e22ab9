package regime

// Route is the router's per-bar decision.
type Route struct {
	// Active is the set of strategy kinds allowed to trade this bar.
	Active []string
	// CooldownRemaining is how many bars must pass before the active set
	// may change again.
	CooldownRemaining int
	// Blocked reports that a change was wanted this bar but suppressed by
	// the cooldown.
	Blocked bool
}

// Router decides which strategies are active each bar.
type Router interface {
	OnBar(tag Tag, barIndex int) Route
}

// CooldownRouter maps regimes to strategy sets and enforces a minimum bar
// gap between any two changes to the active set, so rapid regime flips
// cannot thrash strategies on and off.
type CooldownRouter struct {
	cooldown int
	enabled  map[string]bool
	table    map[Tag][]string

	current    []string
	lastChange int
	everSet    bool
}

// NewCooldownRouter builds a router over the enabled strategy kinds. The
// table maps each regime tag to the kinds that should be active under it;
// kinds not in enabled are filtered out. The active set starts empty and
// stays empty until the first known regime tag arrives.
func NewCooldownRouter(cooldownBars int, enabled []string, table map[Tag][]string) *CooldownRouter {
	en := make(map[string]bool, len(enabled))
	for _, k := range enabled {
		en[k] = true
	}
	return &CooldownRouter{
		cooldown: cooldownBars,
		enabled:  en,
		table:    table,
	}
}

func (r *CooldownRouter) OnBar(tag Tag, barIndex int) Route {
	remaining := 0
	if r.everSet {
		if gap := barIndex - r.lastChange; gap < r.cooldown {
			remaining = r.cooldown - gap
		}
	}

	// No regime yet: hold the current set.
	if tag == Unknown {
		return Route{Active: r.active(), CooldownRemaining: remaining}
	}

	desired := make([]string, 0, len(r.table[tag]))
	for _, k := range r.table[tag] {
		if r.enabled[k] {
			desired = append(desired, k)
		}
	}

	if equalSets(desired, r.current) {
		return Route{Active: r.active(), CooldownRemaining: remaining}
	}

	if remaining > 0 {
		return Route{Active: r.active(), CooldownRemaining: remaining, Blocked: true}
	}

	r.current = desired
	r.lastChange = barIndex
	r.everSet = true
	return Route{Active: r.active(), CooldownRemaining: r.cooldown}
}

func (r *CooldownRouter) active() []string {
	return append([]string(nil), r.current...)
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
