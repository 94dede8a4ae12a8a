package rvextension

/*
#include <stdlib.h>

typedef int (*extensionCallback)(char const *name, char const *function, char const *data);

static inline int runExtensionCallback(extensionCallback fnc, char const *name, char const *function, char const *data)
{
	return fnc(name, function, data);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"
)

// ErrNoCallback is returned when the host has not registered a callback yet.
var ErrNoCallback = errors.New("host callback not registered")

var (
	callbackMu  sync.Mutex
	callbackFnc C.extensionCallback
)

//export RVExtensionRegisterCallback
func RVExtensionRegisterCallback(fnc C.extensionCallback) {
	callbackMu.Lock()
	callbackFnc = fnc
	callbackMu.Unlock()
}

// WriteCallback sends function with data, encoded as a host array, to the
// host's callback. A negative return means the host's callback buffer is full.
func WriteCallback(function string, data ...string) error {
	callbackMu.Lock()
	defer callbackMu.Unlock()
	if callbackFnc == nil {
		return ErrNoCallback
	}

	name := C.CString(Config.extensionName)
	defer C.free(unsafe.Pointer(name))
	fn := C.CString(function)
	defer C.free(unsafe.Pointer(fn))
	payload := C.CString(EncodeArray(data))
	defer C.free(unsafe.Pointer(payload))

	if rc := C.runExtensionCallback(callbackFnc, name, fn, payload); rc < 0 {
		return fmt.Errorf("host rejected callback %s: code %d", function, int(rc))
	}
	return nil
}
