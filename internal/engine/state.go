package engine

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/cxfgo/internal/block"
)

// InstanceState is the committed state of one instance. Elementary stateful
// blocks carry State; composite instances carry Children, one entry per
// stateful descendant.
type InstanceState struct {
	State    map[string]cty.Value
	Children map[string]*InstanceState
}

// StateSnapshot captures the committed state of every stateful instance,
// keyed by instance name and nested per composite. Instances with no state
// do not appear. The snapshot is taken from committed state only; staged
// values from an unfinished step are never visible here.
func (e *Engine) StateSnapshot() map[string]*InstanceState {
	snap := make(map[string]*InstanceState)
	for _, rt := range e.instances {
		if cb, ok := rt.blk.(*compositeBlock); ok {
			children := cb.eng.StateSnapshot()
			if len(children) > 0 {
				snap[rt.name] = &InstanceState{Children: children}
			}
			continue
		}
		if st, ok := rt.blk.(block.Stateful); ok {
			snap[rt.name] = &InstanceState{State: st.State()}
		}
	}
	return snap
}

// RestoreState writes a snapshot back into the live instances. Every entry
// must name a stateful instance (or a composite holding one); state keys are
// checked by each block's SetState.
func (e *Engine) RestoreState(states map[string]*InstanceState) error {
	for name, st := range states {
		rt, ok := e.byName[name]
		if !ok {
			return fmt.Errorf("no such instance %q", name)
		}
		if cb, ok := rt.blk.(*compositeBlock); ok {
			if err := cb.eng.RestoreState(st.Children); err != nil {
				return fmt.Errorf("instance %q: %w", name, err)
			}
			continue
		}
		stateful, ok := rt.blk.(block.Stateful)
		if !ok {
			return fmt.Errorf("instance %q holds no state", name)
		}
		if err := stateful.SetState(st.State); err != nil {
			return fmt.Errorf("instance %q: %w", name, err)
		}
	}
	return nil
}
