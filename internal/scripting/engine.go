package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/detsim/internal/core/rng"
)

// ErrNoSteer is returned when no loaded script defines steer.
var ErrNoSteer = errors.New("lua function steer not defined")

const rngTypeName = "detsim.rng"

// Engine wraps a single gopher-lua VM for steering scripts.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
	rng *lua.LUserData
	ctx *lua.LTable
	fn  lua.LValue
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory. Scripts see no os/io libraries and no math.random; the only
// randomness available is the rng argument passed to steer.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := vm.CallByParam(lua.P{Fn: vm.NewFunction(lib.fn), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			vm.Close()
			return nil, fmt.Errorf("open lua lib %s: %w", lib.name, err)
		}
	}
	if math, ok := vm.GetGlobal("math").(*lua.LTable); ok {
		math.RawSetString("random", lua.LNil)
		math.RawSetString("randomseed", lua.LNil)
	}
	for _, name := range []string{"dofile", "loadfile", "collectgarbage"} {
		vm.SetGlobal(name, lua.LNil)
	}

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	e.registerRng()
	e.rng = vm.NewUserData()
	e.rng.Metatable = vm.GetTypeMetatable(rngTypeName)
	e.ctx = vm.NewTable()

	if scriptsDir != "" {
		if err := e.loadDir(filepath.Join(scriptsDir, "steering")); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load steering scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	e.fn = nil
	return nil
}

// DoString runs a chunk of Lua in the engine's VM.
func (e *Engine) DoString(src string) error {
	e.fn = nil
	return e.vm.DoString(src)
}

// HasSteer reports whether a steer function is defined.
func (e *Engine) HasSteer() bool {
	return e.vm.GetGlobal("steer") != lua.LNil
}

// SteerInput is the per-entity state handed to steer.
type SteerInput struct {
	StableID uint64
	Tick     uint64
	X, Y, Z  float64
	VX       float64
	VY       float64
	VZ       float64
	Strength float64
	Wind     float64
}

// SteerResult is the velocity change steer asks for.
type SteerResult struct {
	DX, DY, DZ float64
}

// Steer calls the Lua steer(ctx, rng) function. ctx.id is the stable id
// as a decimal string, with ctx.id_hi and ctx.id_lo holding its upper and
// lower 32 bits. steer returns a table {dx=, dy=, dz=}; missing fields read
// as zero.
func (e *Engine) Steer(in SteerInput, r rng.Rng) (SteerResult, error) {
	if e.fn == nil {
		e.fn = e.vm.GetGlobal("steer")
	}
	if e.fn == lua.LNil {
		return SteerResult{}, ErrNoSteer
	}

	t := e.ctx
	// Lua numbers are float64; ids are passed exactly as a decimal string
	// and as 32-bit halves.
	t.RawSetString("id", lua.LString(strconv.FormatUint(in.StableID, 10)))
	t.RawSetString("id_hi", lua.LNumber(in.StableID>>32))
	t.RawSetString("id_lo", lua.LNumber(in.StableID&0xFFFFFFFF))
	t.RawSetString("tick", lua.LNumber(in.Tick))
	t.RawSetString("x", lua.LNumber(in.X))
	t.RawSetString("y", lua.LNumber(in.Y))
	t.RawSetString("z", lua.LNumber(in.Z))
	t.RawSetString("vx", lua.LNumber(in.VX))
	t.RawSetString("vy", lua.LNumber(in.VY))
	t.RawSetString("vz", lua.LNumber(in.VZ))
	t.RawSetString("strength", lua.LNumber(in.Strength))
	t.RawSetString("wind", lua.LNumber(in.Wind))

	e.rng.Value = r
	defer func() { e.rng.Value = nil }()

	if err := e.vm.CallByParam(lua.P{
		Fn:      e.fn,
		NRet:    1,
		Protect: true,
	}, t, e.rng); err != nil {
		return SteerResult{}, fmt.Errorf("lua steer id=%d: %w", in.StableID, err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return SteerResult{}, fmt.Errorf("lua steer id=%d returned %s, want table", in.StableID, result.Type())
	}
	return SteerResult{
		DX: lNum(rt, "dx"),
		DY: lNum(rt, "dy"),
		DZ: lNum(rt, "dz"),
	}, nil
}

// --- rng binding ---

func (e *Engine) registerRng() {
	mt := e.vm.NewTypeMetatable(rngTypeName)
	e.vm.SetField(mt, "__index", e.vm.SetFuncs(e.vm.NewTable(), map[string]lua.LGFunction{
		"next_int":    rngNextInt,
		"next_range":  rngNextRange,
		"next_double": rngNextDouble,
		"chance":      rngChance,
		"next_bool":   rngNextBool,
	}))
}

func checkRng(L *lua.LState) rng.Rng {
	ud := L.CheckUserData(1)
	if r, ok := ud.Value.(rng.Rng); ok {
		return r
	}
	L.ArgError(1, "rng used outside steer")
	return nil
}

// r:next_int(max) -> [0, max)
func rngNextInt(L *lua.LState) int {
	r := checkRng(L)
	max := L.CheckInt(2)
	if max <= 0 {
		L.ArgError(2, "max must be positive")
	}
	L.Push(lua.LNumber(r.NextInt(max)))
	return 1
}

// r:next_range(min, max) -> [min, max)
func rngNextRange(L *lua.LState) int {
	r := checkRng(L)
	min, max := L.CheckInt(2), L.CheckInt(3)
	if max <= min {
		L.ArgError(3, "max must exceed min")
	}
	L.Push(lua.LNumber(r.NextIntRange(min, max)))
	return 1
}

func rngNextDouble(L *lua.LState) int {
	L.Push(lua.LNumber(checkRng(L).NextDouble01()))
	return 1
}

func rngChance(L *lua.LState) int {
	r := checkRng(L)
	L.Push(lua.LBool(r.Chance(float64(L.CheckNumber(2)))))
	return 1
}

func rngNextBool(L *lua.LState) int {
	L.Push(lua.LBool(checkRng(L).NextBool()))
	return 1
}

// --- Lua helpers ---

// lNum reads a number field from a Lua table.
func lNum(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
