package layer

// Registry is the process-wide single slot holding the one active
// Instance. The only mutators are the creation and destruction protocols;
// per the scheduling model there is no locking, the host serializes them.
type Registry struct {
	slot *Instance
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Current returns the instance in the slot, constructing a blank one on
// first access. A blank instance is not live: resolution may capture
// bindings into it before creation completes, but it is only published by
// a successful creation.
func (r *Registry) Current() *Instance {
	if r.slot == nil {
		r.slot = newInstance()
	}
	return r.slot
}

// Live reports whether a fully constructed instance occupies the slot.
func (r *Registry) Live() bool {
	return r.slot != nil && r.slot.live
}

// Reset destroys the instance and empties the slot. The destruction
// protocol calls this before invoking the captured final-destroy proc, so
// recursive teardown observes an already-clear registry.
func (r *Registry) Reset() {
	r.slot = nil
}
