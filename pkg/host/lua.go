package host

import (
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/cuemby/bridge/pkg/output"
)

// maxConvertDepth bounds Lua table conversion to keep self-referencing
// tables from recursing forever
const maxConvertDepth = 16

// Eval executes a script against the host surface in a fresh Lua state.
//
// Single-expression input is auto-wrapped with an implicit return;
// multi-statement input runs verbatim. The detection rule is syntactic and
// approximate on purpose: input containing neither a newline nor a
// semicolon and no "return" keyword is treated as an expression. A
// single-line call with a semicolon inside a string literal is a known
// false negative of this rule; external clients depend on the current
// behavior, so keep the rule as-is.
//
// Script logging (log/warn/err) goes to sink with an eval prefix, never to
// the process's own stdout. Any compile or runtime failure is returned as
// an error; the script otherwise runs to completion with no timeout.
func (h *Host) Eval(code string, sink output.Sink) (any, error) {
	chunk := code
	if isExpression(code) {
		chunk = "return " + code
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	if err := openSafeLibs(L); err != nil {
		return nil, fmt.Errorf("failed to initialize script state: %w", err)
	}
	h.bind(L, sink)

	fn, err := L.LoadString(chunk)
	if err != nil {
		return nil, fmt.Errorf("script compile failed: %w", err)
	}

	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}

	if L.GetTop() == 0 {
		return nil, nil
	}
	return luaToGo(L.Get(1), 0), nil
}

// isExpression applies the documented wrap heuristic
func isExpression(code string) bool {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return false
	}
	if strings.ContainsAny(trimmed, "\n;") {
		return false
	}
	return !strings.Contains(trimmed, "return")
}

// openSafeLibs loads the script stdlib subset: base, table, string, math.
// No io, no os, no debug; host access goes through the bound functions only.
func openSafeLibs(L *lua.LState) error {
	libs := []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return err
		}
	}
	return nil
}

// bind installs the enumerated capability whitelist as script globals
func (h *Host) bind(L *lua.LState, sink output.Sink) {
	L.SetGlobal("log", L.NewFunction(logFn(sink, "log")))
	L.SetGlobal("warn", L.NewFunction(logFn(sink, "warn")))
	L.SetGlobal("err", L.NewFunction(logFn(sink, "error")))

	L.SetGlobal("workspace", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(h.Workspace()))
		return 1
	}))

	L.SetGlobal("status", L.NewFunction(func(L *lua.LState) int {
		snap := h.Status()
		tbl := L.NewTable()
		tbl.RawSetString("workspace", lua.LString(snap.Workspace))
		tbl.RawSetString("activeEditor", lua.LString(snap.ActiveEditor))
		terms := L.NewTable()
		for _, term := range snap.Terminals {
			entry := L.NewTable()
			entry.RawSetString("name", lua.LString(term.Name))
			entry.RawSetString("processId", lua.LNumber(term.ProcessID))
			terms.Append(entry)
		}
		tbl.RawSetString("terminals", terms)
		L.Push(tbl)
		return 1
	}))

	L.SetGlobal("terminals", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		for _, term := range h.Status().Terminals {
			entry := L.NewTable()
			entry.RawSetString("name", lua.LString(term.Name))
			entry.RawSetString("processId", lua.LNumber(term.ProcessID))
			tbl.Append(entry)
		}
		L.Push(tbl)
		return 1
	}))

	L.SetGlobal("sleep", L.NewFunction(func(L *lua.LState) int {
		ms := L.CheckNumber(1)
		time.Sleep(time.Duration(float64(ms)) * time.Millisecond)
		return 0
	}))
}

// logFn builds a script log binding writing prefixed lines into sink
func logFn(sink output.Sink, level string) lua.LGFunction {
	return func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.Get(i).String())
		}
		sink.Appendf("[eval:%s] %s", level, strings.Join(parts, " "))
		return 0
	}
}

// luaToGo converts a Lua value to its JSON-compatible Go equivalent.
// Tables with contiguous integer keys 1..n become arrays, everything
// else a string-keyed map.
func luaToGo(v lua.LValue, depth int) any {
	if depth > maxConvertDepth {
		return v.String()
	}

	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return tableToGo(val, depth)
	default:
		// functions, userdata, channels: represent by their string form
		return v.String()
	}
}

func tableToGo(tbl *lua.LTable, depth int) any {
	n := tbl.Len()
	if n > 0 {
		// Contiguous array part and nothing else → JSON array
		arr := make([]any, 0, n)
		isArray := true
		count := 0
		tbl.ForEach(func(_, _ lua.LValue) { count++ })
		if count == n {
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGo(tbl.RawGetInt(i), depth+1))
			}
		} else {
			isArray = false
		}
		if isArray {
			return arr
		}
	}

	obj := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		obj[k.String()] = luaToGo(v, depth+1)
	})
	return obj
}
