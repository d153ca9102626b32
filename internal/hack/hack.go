/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hack

import "unsafe"

type sliceHeader struct {
	Data uintptr
	Len  int
	Cap  int
}

type strHeader struct {
	Data uintptr
	Len  int
}

// ByteSliceToString converts []byte to string without copy
func ByteSliceToString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// StringToByteSlice converts string to []byte without copy
func StringToByteSlice(s string) []byte {
	var v []byte
	p0 := (*sliceHeader)(unsafe.Pointer(&v))
	p1 := (*strHeader)(unsafe.Pointer(&s))
	p0.Data = p1.Data
	p0.Len = p1.Len
	p0.Cap = p1.Len
	return v
}

// BytesAddr returns the address of b's first byte as a uintptr,
// without pinning b itself -- callers that keep the address around
// past b's lifetime are responsible for pinning the backing array
// some other way (slab/outofline.go keeps each buffer whose address it
// takes in its live map for exactly this reason).
func BytesAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// AddrToBytes views the n bytes starting at addr as a []byte.
func AddrToBytes(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}
