package loader

import (
	"encoding/json"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"

	"rowan/internal/errors"
	"rowan/internal/modules"
	"rowan/internal/value"
)

// Native module ABI: the library exports
//
//	void rowan_module_init(void (*register)(const char *name, const char *(*fn)(const char *)));
//
// init calls register once per exported function. Each function receives
// its arguments as a JSON array string and returns a JSON value string,
// or NULL to signal failure.
const initSymbol = "rowan_module_init"

type nativeSym struct {
	name string
	fn   uintptr
}

var (
	registerOnce sync.Once
	registerCb   uintptr
	pendingSyms  []nativeSym
)

// registerCallback is shared by every native library load. The VM is
// single-threaded, so pendingSyms needs no locking.
func registerCallback() uintptr {
	registerOnce.Do(func() {
		registerCb = purego.NewCallback(func(name, fn uintptr) uintptr {
			pendingSyms = append(pendingSyms, nativeSym{name: goString(name), fn: fn})
			return 0
		})
	})
	return registerCb
}

// loadNative opens a shared library, runs its init symbol, and wraps the
// registered functions as natives on a fresh module. Libraries stay
// loaded for the process lifetime.
func (l *Loader) loadNative(name, path string) (value.Value, error) {
	lib, ok := l.libs[path]
	if !ok {
		var err error
		lib, err = openLibrary(path)
		if err != nil {
			return value.Nil(), errors.NewImportError(
				fmt.Sprintf("Cannot load native module %q: %v", name, err), path, 0)
		}
		l.libs[path] = lib
	}

	initPtr, err := lookupSymbol(lib, initSymbol)
	if err != nil {
		return value.Nil(), errors.NewImportError(
			fmt.Sprintf("Native module %q has no %s symbol.", name, initSymbol), path, 0)
	}

	pendingSyms = pendingSyms[:0]
	purego.SyscallN(initPtr, registerCallback())

	mod := l.g.NewModule(name, path)
	l.g.PushTempRoot(mod)
	defer l.g.PopTempRoot()

	for _, sym := range pendingSyms {
		fnPtr := sym.fn
		symName := sym.name
		n := l.g.NewNative(symName, -1, func(args []value.Value) (value.Value, error) {
			return l.callNative(symName, fnPtr, args)
		})
		mod.Exports[symName] = value.Object(n)
		l.g.WriteBarrier(mod, mod.Exports[symName])
	}
	pendingSyms = pendingSyms[:0]

	mod.Loaded = true
	return value.Object(mod), nil
}

// callNative marshals args to JSON, calls the C function, and unmarshals
// its JSON result.
func (l *Loader) callNative(name string, fn uintptr, args []value.Value) (value.Value, error) {
	plain := make([]interface{}, len(args))
	for i, a := range args {
		p, err := modules.ToPlain(a)
		if err != nil {
			return value.Nil(), fmt.Errorf("%s: %v", name, err)
		}
		plain[i] = p
	}
	data, err := json.Marshal(plain)
	if err != nil {
		return value.Nil(), fmt.Errorf("%s: %v", name, err)
	}
	buf := append(data, 0)

	ret, _, _ := purego.SyscallN(fn, uintptr(unsafe.Pointer(&buf[0])))
	if ret == 0 {
		return value.Nil(), fmt.Errorf("%s: native call failed", name)
	}

	var result interface{}
	if err := json.Unmarshal([]byte(goString(ret)), &result); err != nil {
		return value.Nil(), fmt.Errorf("%s: bad native result: %v", name, err)
	}
	return modules.FromPlain(l.g, result), nil
}

// goString copies a NUL-terminated C string.
func goString(p uintptr) string {
	if p == 0 {
		return ""
	}
	var bytes []byte
	for {
		b := *(*byte)(unsafe.Pointer(p))
		if b == 0 {
			break
		}
		bytes = append(bytes, b)
		p++
	}
	return string(bytes)
}
