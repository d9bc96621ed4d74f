// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

// Fuzz drives Load against arbitrary input for corpus-based fuzzing; it
// never panics on malformed data, only returns an error.
func Fuzz(data []byte) int {
	sg, err := Load(data, &LoadOptions{Verify: false})
	if err != nil {
		return 0
	}
	if _, err := sg.Bytes(nil); err != nil {
		return 0
	}
	return 1
}
