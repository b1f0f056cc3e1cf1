// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreRtspServerCommandSession = "RTSPSRVCMD"
	UkPreRtspPullSession          = "RTSPPULL"
	UkPreFramePump                = "FRAMEPUMP"
)

func GenUkRtspServerCommandSession() string {
	return siUkRtspServerCommandSession.GenUniqueKey()
}

func GenUkRtspPullSession() string {
	return siUkRtspPullSession.GenUniqueKey()
}

func GenUkFramePump() string {
	return siUkFramePump.GenUniqueKey()
}

var (
	siUkRtspServerCommandSession *unique.SingleGenerator
	siUkRtspPullSession          *unique.SingleGenerator
	siUkFramePump                *unique.SingleGenerator
)

func init() {
	siUkRtspServerCommandSession = unique.NewSingleGenerator(UkPreRtspServerCommandSession)
	siUkRtspPullSession = unique.NewSingleGenerator(UkPreRtspPullSession)
	siUkFramePump = unique.NewSingleGenerator(UkPreFramePump)
}
