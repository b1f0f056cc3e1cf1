// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

const (
	// StatSession.Protocol
	SessionProtocolRtspStr = "RTSP"

	// StatSession.BaseType
	SessionBaseTypeSubStr  = "SUB"
	SessionBaseTypePullStr = "PULL"
)

type StatSession struct {
	SessionId string `json:"session_id"`
	Protocol  string `json:"protocol"`
	BaseType  string `json:"base_type"`

	StartTime  string `json:"start_time"`
	RemoteAddr string `json:"remote_addr"`

	ReadBytesSum  uint64 `json:"read_bytes_sum"`
	WroteBytesSum uint64 `json:"wrote_bytes_sum"`
	Bitrate       int    `json:"bitrate_kbits"`
	ReadBitrate   int    `json:"read_bitrate_kbits"`
	WriteBitrate  int    `json:"write_bitrate_kbits"`
}

// StatMedia 一个rtsp会话的媒体发送统计
//
type StatMedia struct {
	State         string `json:"state"`
	Ssrc          string `json:"ssrc"`
	ClientRtpPort int    `json:"client_rtp_port"`
	ServerRtpPort int    `json:"server_rtp_port"`
	Fps           int    `json:"fps"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`

	FrameCount         uint64 `json:"frame_count"`
	InvalidFrameCount  uint64 `json:"invalid_frame_count"`
	PacketCount        uint64 `json:"packet_count"`
	DroppedPacketCount uint64 `json:"dropped_packet_count"`
	RtpBytesSum        uint64 `json:"rtp_bytes_sum"`
	RtpBitrate         int    `json:"rtp_bitrate_kbits"`
}

type StatRtspSession struct {
	StatSession
	Media StatMedia `json:"media"`
}

type StatSource struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	PublishedCount uint64 `json:"published_count"`
	DroppedCount   uint64 `json:"dropped_count"`
	AcquiredCount  uint64 `json:"acquired_count"`
	NotReadyCount  uint64 `json:"not_ready_count"`
	LastFrameSize  int    `json:"last_frame_size"`
}
