package signal

import "context"

// EntityEvent is the payload of the generic entity lifecycle signals
// ("entity:created", "entity:updated", "entity:deleted"). Entity names the
// kind ("books", "users"); Data carries whatever the emitter attached.
type EntityEvent struct {
	Entity string
	Data   any
}

// EmitEntity emits a single generic "entity:<action>" signal carrying an
// EntityEvent. There is no per-kind channel: subscribers filter by
// inspecting the payload or by subscribing with a wildcard pattern.
func (b *Bus) EmitEntity(ctx context.Context, kind, action string, data any) error {
	return b.Emit(ctx, "entity"+Sep+action, EntityEvent{Entity: kind, Data: data})
}
