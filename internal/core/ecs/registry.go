package ecs

import (
	"reflect"
	"sync"

	"github.com/rotisserie/eris"
)

// MaxComponentTypes bounds the process-wide registry; archetype masks are
// fixed-width bitsets sized for it.
const MaxComponentTypes = 256

// ComponentTypeID is a dense identifier assigned to a component type on its
// first registration. It is stable for the life of the process only.
type ComponentTypeID int32

type componentInfo struct {
	id        ComponentTypeID
	typ       reflect.Type
	newColumn func(capacity int) column
}

// registry maps component types to dense ids. Writes happen once per type
// during warm-up; afterwards it is read-mostly.
type registry struct {
	mu     sync.RWMutex
	byType map[reflect.Type]ComponentTypeID
	infos  []componentInfo
}

var components = newRegistry()

func newRegistry() *registry {
	return &registry{byType: make(map[reflect.Type]ComponentTypeID, 32)}
}

// RegisterComponent assigns T a ComponentTypeID. Registering the same type
// again returns the id issued the first time.
func RegisterComponent[T any]() (ComponentTypeID, error) {
	typ := reflect.TypeFor[T]()

	components.mu.RLock()
	id, ok := components.byType[typ]
	components.mu.RUnlock()
	if ok {
		return id, nil
	}

	components.mu.Lock()
	defer components.mu.Unlock()
	if id, ok := components.byType[typ]; ok {
		return id, nil
	}
	if len(components.infos) >= MaxComponentTypes {
		return -1, eris.Wrapf(ErrTooManyComponentTypes, "register %s", typ)
	}
	id = ComponentTypeID(len(components.infos))
	components.byType[typ] = id
	components.infos = append(components.infos, componentInfo{
		id:  id,
		typ: typ,
		newColumn: func(capacity int) column {
			return &typedColumn[T]{id: id, data: make([]T, 0, capacity)}
		},
	})
	return id, nil
}

// MustRegisterComponent is RegisterComponent for package-level var blocks.
func MustRegisterComponent[T any]() ComponentTypeID {
	id, err := RegisterComponent[T]()
	if err != nil {
		panic(err)
	}
	return id
}

// GetComponentTypeID returns the id registered for T.
func GetComponentTypeID[T any]() (ComponentTypeID, error) {
	typ := reflect.TypeFor[T]()
	components.mu.RLock()
	id, ok := components.byType[typ]
	components.mu.RUnlock()
	if !ok {
		return -1, eris.Wrapf(ErrComponentNotRegistered, "type %s", typ)
	}
	return id, nil
}

// ComponentTypeName returns the Go type name behind id, for logs.
func ComponentTypeName(id ComponentTypeID) string {
	info, ok := lookupComponent(id)
	if !ok {
		return "<unregistered>"
	}
	return info.typ.String()
}

func lookupComponent(id ComponentTypeID) (componentInfo, bool) {
	components.mu.RLock()
	defer components.mu.RUnlock()
	if id < 0 || int(id) >= len(components.infos) {
		return componentInfo{}, false
	}
	return components.infos[id], true
}
