package ecs

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrPlaybackInProgress is returned when Playback is re-entered.
var ErrPlaybackInProgress = eris.New("ecs: command buffer playback in progress")

type commandKind uint8

const (
	cmdCreate commandKind = iota
	cmdAdd
	cmdRemove
	cmdDestroy
)

type command struct {
	kind    commandKind
	entity  Entity
	typeID  ComponentTypeID
	value   componentValue
	sortKey int64
	seq     uint64
	err     error
}

// BufferState describes where a CommandBuffer is in its cycle.
type BufferState uint8

const (
	BufferEmpty BufferState = iota
	BufferRecording
	BufferPlaying
)

func (s BufferState) String() string {
	switch s {
	case BufferRecording:
		return "recording"
	case BufferPlaying:
		return "playing"
	default:
		return "empty"
	}
}

// PlaybackStats summarizes one Playback.
type PlaybackStats struct {
	Created   int
	Added     int
	Removed   int
	Destroyed int
	Skipped   int
}

// CommandWriter records structural commands. *CommandBuffer writes with the
// submission index as sort key; KeyedWriter writes with an explicit key.
type CommandWriter interface {
	CreateEntity() Entity
	DestroyEntity(e Entity)
	record(cmd command, keyed bool) Entity
}

// CommandBuffer queues structural changes and replays them in
// (sort key, submission order). Submissions made while Playback runs land
// in the next batch. It is safe for concurrent producers.
type CommandBuffer struct {
	mu       sync.Mutex
	log      *zap.Logger
	commands []command
	seq      uint64
	temps    int32
	batch    int32 // number of the batch being recorded
	playing  bool
	resolved []Entity
	played   int32 // number of the batch resolved holds
}

// NewCommandBuffer returns an empty buffer. A nil logger disables logging.
func NewCommandBuffer(log *zap.Logger) *CommandBuffer {
	if log == nil {
		log = zap.NewNop()
	}
	return &CommandBuffer{log: log, batch: 1}
}

// Len reports how many commands wait for the next Playback.
func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.commands)
}

// State reports the buffer's position in its record/playback cycle.
func (b *CommandBuffer) State() BufferState {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.playing:
		return BufferPlaying
	case len(b.commands) > 0:
		return BufferRecording
	default:
		return BufferEmpty
	}
}

// At returns a writer whose commands carry sortKey. Producers that run
// concurrently must use explicit keys for a peer-independent replay order.
func (b *CommandBuffer) At(sortKey int64) KeyedWriter {
	return KeyedWriter{buf: b, key: sortKey}
}

// CreateEntity queues an entity creation and returns a temporary handle,
// usable as a target in the same batch until Playback resolves it.
func (b *CommandBuffer) CreateEntity() Entity {
	return b.record(command{kind: cmdCreate}, false)
}

// DestroyEntity queues destruction of e.
func (b *CommandBuffer) DestroyEntity(e Entity) {
	b.record(command{kind: cmdDestroy, entity: e}, false)
}

func (b *CommandBuffer) record(cmd command, keyed bool) Entity {
	b.mu.Lock()
	defer b.mu.Unlock()
	cmd.seq = b.seq
	b.seq++
	if !keyed {
		cmd.sortKey = int64(cmd.seq)
	}
	if cmd.kind == cmdCreate {
		cmd.entity = tempEntity(b.temps, b.batch)
		b.temps++
	}
	b.commands = append(b.commands, cmd)
	return cmd.entity
}

// KeyedWriter records commands under one explicit sort key.
type KeyedWriter struct {
	buf *CommandBuffer
	key int64
}

// CreateEntity queues a creation under the writer's sort key.
func (w KeyedWriter) CreateEntity() Entity {
	return w.record(command{kind: cmdCreate}, true)
}

// DestroyEntity queues destruction of e under the writer's sort key.
func (w KeyedWriter) DestroyEntity(e Entity) {
	w.record(command{kind: cmdDestroy, entity: e}, true)
}

func (w KeyedWriter) record(cmd command, _ bool) Entity {
	cmd.sortKey = w.key
	return w.buf.record(cmd, true)
}

// DeferAdd queues adding a T with value v to e.
func DeferAdd[T any](w CommandWriter, e Entity, v T) {
	id, err := GetComponentTypeID[T]()
	w.record(command{kind: cmdAdd, entity: e, typeID: id, value: typedValue[T]{id: id, v: v}, err: err}, false)
}

// DeferRemove queues removing T from e.
func DeferRemove[T any](w CommandWriter, e Entity) {
	id, err := GetComponentTypeID[T]()
	w.record(command{kind: cmdRemove, entity: e, typeID: id, err: err}, false)
}

// Resolve maps a temporary handle from the last played batch to the world
// entity it became. Handles from any other batch do not resolve.
// Non-temporary handles are returned unchanged.
func (b *CommandBuffer) Resolve(e Entity) (Entity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return resolve(b.resolved, b.played, e)
}

func resolve(resolved []Entity, batch int32, e Entity) (Entity, bool) {
	if !e.IsTemporary() {
		return e, true
	}
	if e.Version != batch {
		return InvalidEntity, false
	}
	ord := tempOrdinal(e)
	if int(ord) >= len(resolved) || !resolved[ord].IsValid() {
		return InvalidEntity, false
	}
	return resolved[ord], true
}

// Playback applies the recorded batch to w: creations first, then adds and
// removes, then destroys, each group in (sort key, submission) order.
// Targets that no longer exist, temporary handles from earlier batches,
// duplicate adds and missing removes are skipped. A command naming an unregistered component type fails the
// whole batch before anything is applied.
func (b *CommandBuffer) Playback(w *World) (PlaybackStats, error) {
	var stats PlaybackStats
	if err := w.checkStructural(); err != nil {
		return stats, err
	}

	b.mu.Lock()
	if b.playing {
		b.mu.Unlock()
		return stats, ErrPlaybackInProgress
	}
	batch := b.commands
	temps := b.temps
	gen := b.batch
	b.commands = nil
	b.temps = 0
	b.batch++
	b.playing = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.playing = false
		b.mu.Unlock()
	}()

	for _, cmd := range batch {
		if cmd.err != nil {
			return stats, eris.Wrapf(cmd.err, "playback %v", cmd.entity)
		}
	}

	slices.SortFunc(batch, func(a, c command) int {
		if n := cmp.Compare(a.sortKey, c.sortKey); n != 0 {
			return n
		}
		return cmp.Compare(a.seq, c.seq)
	})

	resolved := make([]Entity, temps)
	for i := range resolved {
		resolved[i] = InvalidEntity
	}
	for _, cmd := range batch {
		if cmd.kind != cmdCreate {
			continue
		}
		resolved[tempOrdinal(cmd.entity)] = w.spawn(w.empty)
		stats.Created++
	}

	for _, cmd := range batch {
		if cmd.kind != cmdAdd && cmd.kind != cmdRemove {
			continue
		}
		target, ok := resolve(resolved, gen, cmd.entity)
		if !ok {
			stats.Skipped++
			continue
		}
		var err error
		if cmd.kind == cmdAdd {
			err = w.addComponent(target, cmd.value)
		} else {
			err = w.removeComponent(target, cmd.typeID)
		}
		switch {
		case err == nil && cmd.kind == cmdAdd:
			stats.Added++
		case err == nil:
			stats.Removed++
		case tolerated(err):
			stats.Skipped++
		default:
			return stats, err
		}
	}

	for _, cmd := range batch {
		if cmd.kind != cmdDestroy {
			continue
		}
		target, ok := resolve(resolved, gen, cmd.entity)
		if !ok {
			stats.Skipped++
			continue
		}
		err := w.DestroyEntity(target)
		switch {
		case err == nil:
			stats.Destroyed++
		case tolerated(err):
			stats.Skipped++
		default:
			return stats, err
		}
	}

	b.mu.Lock()
	b.resolved = resolved
	b.played = gen
	b.mu.Unlock()

	if len(batch) > 0 {
		b.log.Debug("command buffer played back",
			zap.Int("commands", len(batch)),
			zap.Int("created", stats.Created),
			zap.Int("added", stats.Added),
			zap.Int("removed", stats.Removed),
			zap.Int("destroyed", stats.Destroyed),
			zap.Int("skipped", stats.Skipped))
	}
	return stats, nil
}

func tolerated(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrComponentExists) ||
		errors.Is(err, ErrComponentMissing)
}
