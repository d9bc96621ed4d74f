// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package onisave

import "go.uber.org/zap"

// defaultLogger returns a no-op logger, used whenever the caller's Options
// don't supply one. Mirrors the teacher's pattern of always having a
// non-nil logger on the root type so call sites never nil-check it.
func defaultLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
