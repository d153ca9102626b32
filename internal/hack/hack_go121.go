//go:build go1.21

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

// BinaryToString converts []byte to string without copy, superseding
// ByteSliceToString on go1.21+ where unsafe.String/unsafe.SliceData
// exist and don't need the sliceHeader/strHeader punning below them.
func BinaryToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// StringToBinary converts string to []byte without copy, superseding
// StringToByteSlice on go1.21+.
func StringToBinary(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
