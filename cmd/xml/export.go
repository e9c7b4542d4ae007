/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: export.go
Description: libFuzzer entry point exported through cgo. Build with -tags libfuzzer and
-buildmode=c-archive, then link against the engine.
*/

//go:build libfuzzer

package main

// #include <stddef.h>
// #include <stdint.h>
import "C"

import "unsafe"

//export LLVMFuzzerTestOneInput
func LLVMFuzzerTestOneInput(data *C.uint8_t, size C.size_t) C.int {
	s := make([]byte, size)
	if size != 0 {
		copy(s, unsafe.Slice((*byte)(unsafe.Pointer(data)), int(size)))
	}
	return C.int(h.TestOneInput(s))
}

func main() {}
