package providers

import "context"

type milestoneKey struct{}

// WithMilestones attaches a per-call milestone sink to the context. Provider
// instances are cached and shared across executions, so progress hooks
// travel on the context instead of on the instance.
func WithMilestones(ctx context.Context, sink func(label string)) context.Context {
	return context.WithValue(ctx, milestoneKey{}, sink)
}

// MilestonesFrom returns the milestone sink attached to ctx, or nil.
func MilestonesFrom(ctx context.Context) func(label string) {
	sink, _ := ctx.Value(milestoneKey{}).(func(label string))

	return sink
}
