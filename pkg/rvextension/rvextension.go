package rvextension

/*
#include <stdlib.h>
#include <stdio.h>
#include <string.h>
*/
import "C"
import (
	"fmt"
	"time"
	"unsafe"

	"github.com/OCAP2/position-tracker/internal/dispatcher"
)

// called by the host to get the version of the extension
//
//export RVExtensionVersion
func RVExtensionVersion(output *C.char, outputsize C.size_t) {
	replyToSyncCall(Config.rvExtensionVersion, output, outputsize)
}

// called by the host in the form: "extensionName" callExtension "command|arg|arg"
//
//export RVExtension
func RVExtension(output *C.char, outputsize C.size_t, input *C.char) {
	command, args := splitCommand(C.GoString(input))
	replyToSyncCall(dispatch(command, args), output, outputsize)
}

// called by the host in the form: "extensionName" callExtension ["command", [args]]
//
//export RVExtensionArgs
func RVExtensionArgs(output *C.char, outputsize C.size_t, input *C.char, argv **C.char, argc C.int) {
	command := C.GoString(input)
	args := parseArgsFromC(argv, argc)
	replyToSyncCall(dispatch(command, args), output, outputsize)
}

func dispatch(command string, args []string) string {
	d := Config.dispatcher
	if d == nil || !d.HasHandler(command) {
		return formatDispatchResponse(command, nil, fmt.Errorf("no handler registered"))
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatDispatchResponse(command, result, err)
}

// parseArgsFromC converts C argv array to Go string slice
func parseArgsFromC(argv **C.char, argc C.int) []string {
	var offset = unsafe.Sizeof(uintptr(0))
	var data []string
	for index := C.int(0); index < argc; index++ {
		data = append(data, C.GoString(*argv))
		argv = (**C.char)(unsafe.Pointer(uintptr(unsafe.Pointer(argv)) + offset))
	}
	return data
}

// replyToSyncCall copies response into the host's output buffer, truncating
// to outputsize.
func replyToSyncCall(response string, output *C.char, outputsize C.size_t) {
	result := C.CString(response)
	defer C.free(unsafe.Pointer(result))
	var size = C.strlen(result) + 1
	if size > outputsize {
		size = outputsize
	}
	C.memmove(unsafe.Pointer(output), unsafe.Pointer(result), size)
}
