package ecs

import "github.com/rotisserie/eris"

var (
	// ErrEntityNotFound reports a destroyed, stale or never-issued entity handle.
	ErrEntityNotFound = eris.New("ecs: entity not found")
	// ErrComponentExists reports an Add for a component the entity already has.
	ErrComponentExists = eris.New("ecs: component already on entity")
	// ErrComponentMissing reports a Remove or Get for a component the entity lacks.
	ErrComponentMissing = eris.New("ecs: component not on entity")
	// ErrComponentNotRegistered reports use of a type that never went through RegisterComponent.
	ErrComponentNotRegistered = eris.New("ecs: component type not registered")
	// ErrTooManyComponentTypes is returned once MaxComponentTypes distinct types exist.
	ErrTooManyComponentTypes = eris.New("ecs: too many component types")
	// ErrStructuralChange reports a direct structural mutation while chunks are being iterated.
	ErrStructuralChange = eris.New("ecs: structural change during chunk iteration")
	// ErrForeignArchetype reports an archetype passed to a World that did not create it.
	ErrForeignArchetype = eris.New("ecs: archetype belongs to another world")
	// ErrSchedulerState reports a scheduler call out of Create/Tick/Destroy order.
	ErrSchedulerState = eris.New("ecs: scheduler in wrong state")
)
