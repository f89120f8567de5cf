// Package teams holds the narrow interface the engine uses to obtain teams.
// Team construction and packing live with the caller; the engine only ever
// sees packed team strings.
package teams

// Builder yields one packed team string per battle. An empty string means
// the format provides its own teams (random battles).
type Builder interface {
	Yield() string
}

// ConstantBuilder always yields the same packed team.
type ConstantBuilder struct {
	Team string
}

func (b ConstantBuilder) Yield() string { return b.Team }

// RotatingBuilder cycles through a fixed set of packed teams.
type RotatingBuilder struct {
	Teams []string
	next  int
}

func (b *RotatingBuilder) Yield() string {
	if len(b.Teams) == 0 {
		return ""
	}
	team := b.Teams[b.next%len(b.Teams)]
	b.next++
	return team
}
