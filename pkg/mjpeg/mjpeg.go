// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package mjpeg

import (
	"bytes"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// JPEG markers, ITU T.81 B.1.1.3
const (
	MarkerPrefix uint8 = 0xFF
	MarkerSoi    uint8 = 0xD8
	MarkerEoi    uint8 = 0xD9
	MarkerSos    uint8 = 0xDA
	MarkerDqt    uint8 = 0xDB
	MarkerDht    uint8 = 0xC4
	MarkerSof0   uint8 = 0xC0
	MarkerSof15  uint8 = 0xCF
	MarkerJpg    uint8 = 0xC8
	MarkerDac    uint8 = 0xCC
)

// scanDataOffsetFromSos 头部前缀的结束位置相对SOS标记的偏移
//
// 即头部前缀包含SOS标记本身以及其长度字段
const scanDataOffsetFromSos = 4

// RFC 2435 3.1.7 Q值
const (
	QNoTable uint8 = 0
	QInline  uint8 = 255
)

// FrameInfo 一帧JPEG拆分为头部前缀和扫描数据两部分
//
// Buf[:HeaderLen] 为头部前缀，Buf[HeaderLen:] 为扫描数据
//
type FrameInfo struct {
	HeaderLen int
	ScanLen   int
	Width     int
	Height    int
}

// FindScanDataOffset 返回头部前缀长度，即第一个SOS标记的位置加4
//
func FindScanDataOffset(jpeg []byte) (int, error) {
	idx := bytes.Index(jpeg, []byte{MarkerPrefix, MarkerSos})
	if idx < 0 {
		return -1, base.ErrJpegSosNotFound
	}
	return idx + scanDataOffsetFromSos, nil
}

// HasQuantizationTable 头部前缀中是否包含DQT标记
//
func HasQuantizationTable(header []byte) bool {
	return bytes.Contains(header, []byte{MarkerPrefix, MarkerDqt})
}

// CalcQ 头部前缀中有DQT时返回255，否则返回0
//
func CalcQ(header []byte) uint8 {
	if HasQuantizationTable(header) {
		return QInline
	}
	return QNoTable
}

// ParseFrameSize 从SOFn段中解析宽高
//
func ParseFrameSize(jpeg []byte) (width, height int, err error) {
	if len(jpeg) < 4 || jpeg[0] != MarkerPrefix || jpeg[1] != MarkerSoi {
		return 0, 0, base.ErrJpegSofNotFound
	}

	i := 2
	for i+4 <= len(jpeg) {
		if jpeg[i] != MarkerPrefix {
			return 0, 0, base.ErrJpegSofNotFound
		}
		marker := jpeg[i+1]
		// fill bytes
		if marker == MarkerPrefix {
			i++
			continue
		}
		if marker == MarkerSos || marker == MarkerEoi {
			break
		}
		segLen := int(bele.BeUint16(jpeg[i+2:]))
		if isSof(marker) {
			// length(2) precision(1) height(2) width(2)
			if i+9 > len(jpeg) {
				break
			}
			height = int(bele.BeUint16(jpeg[i+5:]))
			width = int(bele.BeUint16(jpeg[i+7:]))
			return width, height, nil
		}
		i += 2 + segLen
	}
	return 0, 0, base.ErrJpegSofNotFound
}

// CheckDimension RFC 2435的宽高字段为单字节，单位8像素
//
func CheckDimension(width, height int) error {
	if width <= 0 || height <= 0 || width > base.MjpegMaxDimension || height > base.MjpegMaxDimension {
		return base.NewErrJpegDimension(width, height)
	}
	return nil
}

// Analyze 检查一帧是否可以用RFC 2435发送，并返回拆分信息
//
// width或height为0时，从JPEG的SOF段中解析
//
func Analyze(jpeg []byte, width, height int) (info FrameInfo, err error) {
	info.HeaderLen, err = FindScanDataOffset(jpeg)
	if err != nil {
		return
	}
	info.ScanLen = len(jpeg) - info.HeaderLen
	if info.ScanLen <= 0 {
		err = base.ErrJpegEmptyScan
		return
	}
	if info.ScanLen > MaxScanLen {
		err = base.NewErrJpegScanTooLarge(info.ScanLen)
		return
	}

	if width == 0 || height == 0 {
		width, height, err = ParseFrameSize(jpeg)
		if err != nil {
			return
		}
	}
	if err = CheckDimension(width, height); err != nil {
		return
	}
	info.Width = width
	info.Height = height
	return
}

// MaxScanLen 分片偏移字段为24位
const MaxScanLen = 0xFFFFFF

// SplitFrames 将连续的多帧JPEG（比如.mjpeg文件）按SOI、EOI切分
//
// 返回的切片引用 data 的内存
//
func SplitFrames(data []byte) [][]byte {
	var ret [][]byte
	soi := []byte{MarkerPrefix, MarkerSoi}
	eoi := []byte{MarkerPrefix, MarkerEoi}
	for {
		start := bytes.Index(data, soi)
		if start < 0 {
			break
		}
		end := bytes.Index(data[start+2:], eoi)
		if end < 0 {
			break
		}
		end += start + 2 + 2
		ret = append(ret, data[start:end])
		data = data[end:]
	}
	return ret
}

func isSof(marker uint8) bool {
	return marker >= MarkerSof0 && marker <= MarkerSof15 &&
		marker != MarkerDht && marker != MarkerJpg && marker != MarkerDac
}
