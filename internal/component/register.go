package component

import (
	"fmt"

	"github.com/l1jgo/detsim/internal/core/ecs"
)

// IDs holds the registered type ids of every bundled component.
type IDs struct {
	Position        ecs.ComponentTypeID
	Velocity        ecs.ComponentTypeID
	Steered         ecs.ComponentTypeID
	NetworkIdentity ecs.ComponentTypeID
	Lifetime        ecs.ComponentTypeID
	Health          ecs.ComponentTypeID
	Spawner         ecs.ComponentTypeID
}

// Register registers every bundled component type. Peers must call it in the
// same order before any world is built, so type ids and digests agree.
func Register() (IDs, error) {
	var ids IDs
	var err error
	if ids.Position, err = ecs.RegisterComponent[Position](); err != nil {
		return ids, fmt.Errorf("register Position: %w", err)
	}
	if ids.Velocity, err = ecs.RegisterComponent[Velocity](); err != nil {
		return ids, fmt.Errorf("register Velocity: %w", err)
	}
	if ids.Steered, err = ecs.RegisterComponent[Steered](); err != nil {
		return ids, fmt.Errorf("register Steered: %w", err)
	}
	if ids.NetworkIdentity, err = ecs.RegisterComponent[NetworkIdentity](); err != nil {
		return ids, fmt.Errorf("register NetworkIdentity: %w", err)
	}
	if ids.Lifetime, err = ecs.RegisterComponent[Lifetime](); err != nil {
		return ids, fmt.Errorf("register Lifetime: %w", err)
	}
	if ids.Health, err = ecs.RegisterComponent[Health](); err != nil {
		return ids, fmt.Errorf("register Health: %w", err)
	}
	if ids.Spawner, err = ecs.RegisterComponent[Spawner](); err != nil {
		return ids, fmt.Errorf("register Spawner: %w", err)
	}
	return ids, nil
}

// MustRegister is Register for program start-up.
func MustRegister() IDs {
	ids, err := Register()
	if err != nil {
		panic(err)
	}
	return ids
}
