// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"github.com/q191201771/naza/pkg/connection"
)

type IStatable interface {
	GetStat() connection.Stat
}

// BasicSessionStat
//
// 包含两部分功能：
// 1. 维护 StatSession 的一些静态信息
// 2. 计算带宽
//
// 字节数既可以由外部的 connection.Connection 提供，也可以由 AddReadBytes / AddWriteBytes 自己累加
//
type BasicSessionStat struct {
	stat StatSession

	prevConnStat connection.Stat
	staleStat    *connection.Stat

	currConnStat connection.StatAtomic
}

// NewBasicSessionStat
//
// @param remoteAddr: 如果当前未知，填入""空字符串
//
func NewBasicSessionStat(baseType string, sessionId string, remoteAddr string) BasicSessionStat {
	var s BasicSessionStat
	s.stat.SessionId = sessionId
	s.stat.Protocol = SessionProtocolRtspStr
	s.stat.BaseType = baseType
	s.stat.StartTime = ReadableNowTime()
	s.stat.RemoteAddr = remoteAddr
	return s
}

func (s *BasicSessionStat) SetRemoteAddr(addr string) {
	s.stat.RemoteAddr = addr
}

// ---------------------------------------------------------------------------------------------------------------------

func (s *BasicSessionStat) AddReadBytes(n int) {
	s.currConnStat.ReadBytesSum.Add(uint64(n))
}

func (s *BasicSessionStat) AddWriteBytes(n int) {
	s.currConnStat.WroteBytesSum.Add(uint64(n))
}

func (s *BasicSessionStat) UpdateStat(intervalSec uint32) {
	s.updateStat(s.currConnStat.ReadBytesSum.Load(), s.currConnStat.WroteBytesSum.Load(), intervalSec)
}

func (s *BasicSessionStat) UpdateStatWitchConn(conn IStatable, intervalSec uint32) {
	currStat := conn.GetStat()
	s.updateStat(currStat.ReadBytesSum, currStat.WroteBytesSum, intervalSec)
}

func (s *BasicSessionStat) GetStat() StatSession {
	s.stat.ReadBytesSum = s.currConnStat.ReadBytesSum.Load()
	s.stat.WroteBytesSum = s.currConnStat.WroteBytesSum.Load()
	return s.stat
}

func (s *BasicSessionStat) GetStatWithConn(conn IStatable) StatSession {
	connStat := conn.GetStat()
	ret := s.stat
	ret.ReadBytesSum = connStat.ReadBytesSum
	ret.WroteBytesSum = connStat.WroteBytesSum
	return ret
}

func (s *BasicSessionStat) IsAlive() (readAlive, writeAlive bool) {
	return s.isAlive(s.currConnStat.ReadBytesSum.Load(), s.currConnStat.WroteBytesSum.Load())
}

// ---------------------------------------------------------------------------------------------------------------------

func (s *BasicSessionStat) BaseType() string {
	return s.stat.BaseType
}

func (s *BasicSessionStat) UniqueKey() string {
	return s.stat.SessionId
}

// ---------------------------------------------------------------------------------------------------------------------

func (s *BasicSessionStat) updateStat(readBytesSum, wroteBytesSum uint64, intervalSec uint32) {
	if intervalSec == 0 {
		intervalSec = 1
	}
	rDiff := readBytesSum - s.prevConnStat.ReadBytesSum
	s.stat.ReadBitrate = int(rDiff * 8 / 1024 / uint64(intervalSec))
	wDiff := wroteBytesSum - s.prevConnStat.WroteBytesSum
	s.stat.WriteBitrate = int(wDiff * 8 / 1024 / uint64(intervalSec))

	switch s.stat.BaseType {
	case SessionBaseTypePullStr:
		s.stat.Bitrate = s.stat.ReadBitrate
	case SessionBaseTypeSubStr:
		s.stat.Bitrate = s.stat.WriteBitrate
	default:
		Log.Errorf("invalid session base type. type=%s", s.stat.BaseType)
	}

	s.prevConnStat.ReadBytesSum = readBytesSum
	s.prevConnStat.WroteBytesSum = wroteBytesSum
}

func (s *BasicSessionStat) isAlive(readBytesSum, wroteBytesSum uint64) (readAlive, writeAlive bool) {
	if s.staleStat == nil {
		s.staleStat = new(connection.Stat)
		s.staleStat.ReadBytesSum = readBytesSum
		s.staleStat.WroteBytesSum = wroteBytesSum
		return true, true
	}

	readAlive = !(readBytesSum-s.staleStat.ReadBytesSum == 0)
	writeAlive = !(wroteBytesSum-s.staleStat.WroteBytesSum == 0)
	s.staleStat.ReadBytesSum = readBytesSum
	s.staleStat.WroteBytesSum = wroteBytesSum
	return
}
