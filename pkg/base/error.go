// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import (
	"errors"
	"fmt"
)

// ----- common --------------------------------------------------------------------------------------------------------

var (
	ErrShortBuffer  = errors.New("lalmjpeg: buffer too short")
	ErrFileNotExist = errors.New("lalmjpeg: file not exist")
)

// ----- pkg/base ------------------------------------------------------------------------------------------------------

var (
	ErrAddrEmpty               = errors.New("lalmjpeg.base: http server addr empty")
	ErrMultiRegisterForPattern = errors.New("lalmjpeg.base: http server multiple registrations for pattern")

	// ErrFrameNotReady FrameSource 当前没有可用的帧，调用方稍后重试
	ErrFrameNotReady = errors.New("lalmjpeg.base: frame not ready")
)

// ----- pkg/framesource -----------------------------------------------------------------------------------------------

var (
	ErrFrameSource        = errors.New("lalmjpeg.framesource: fxxk")
	ErrFrameSourceNoFrame = errors.New("lalmjpeg.framesource: no jpeg frame found")
	ErrFrameSourceClosed  = errors.New("lalmjpeg.framesource: closed")
)

// ----- pkg/mjpeg -----------------------------------------------------------------------------------------------------

var (
	ErrJpegSosNotFound   = errors.New("lalmjpeg.mjpeg: start of scan marker not found")
	ErrJpegSofNotFound   = errors.New("lalmjpeg.mjpeg: start of frame marker not found")
	ErrJpegEmptyScan     = errors.New("lalmjpeg.mjpeg: empty scan data")
	ErrJpegScanTooLarge  = errors.New("lalmjpeg.mjpeg: scan data exceeds 24-bit fragment offset")
	ErrJpegDimension     = errors.New("lalmjpeg.mjpeg: invalid frame dimension")
	ErrJpegHeaderTooLong = errors.New("lalmjpeg.mjpeg: header prefix does not fit in the first packet")
)

func NewErrJpegDimension(width, height int) error {
	return fmt.Errorf("%w. width=%d, height=%d", ErrJpegDimension, width, height)
}

func NewErrJpegScanTooLarge(scanLen int) error {
	return fmt.Errorf("%w. len=%d", ErrJpegScanTooLarge, scanLen)
}

func NewErrJpegHeaderTooLong(headerLen, maxPayload int) error {
	return fmt.Errorf("%w. header=%d, max payload=%d", ErrJpegHeaderTooLong, headerLen, maxPayload)
}

// ----- pkg/rtprtcp ---------------------------------------------------------------------------------------------------

var (
	ErrRtpRtcpShortBuffer = errors.New("lalmjpeg.rtprtcp: buffer too short")
	ErrRtpFragmentSize    = errors.New("lalmjpeg.rtprtcp: non positive fragment size")
	ErrRtpJpegReassemble  = errors.New("lalmjpeg.rtprtcp: jpeg fragment out of order")
)

func NewErrRtpRtcpShortBuffer(need, actual int) error {
	return fmt.Errorf("%w. need=%d, actual=%d", ErrRtpRtcpShortBuffer, need, actual)
}

// ----- pkg/rtsp ------------------------------------------------------------------------------------------------------

var (
	ErrRtsp                    = errors.New("lalmjpeg.rtsp: fxxk")
	ErrRtspMessageTooLarge     = errors.New("lalmjpeg.rtsp: message exceeds max size")
	ErrRtspInvalidTransport    = errors.New("lalmjpeg.rtsp: invalid client_port in Transport")
	ErrRtspClosed              = errors.New("lalmjpeg.rtsp: session closed")
	ErrRtspSendRetryExhausted  = errors.New("lalmjpeg.rtsp: send retry exhausted")
	ErrRtspUnexpectedStatus    = errors.New("lalmjpeg.rtsp: unexpected response status")
	ErrRtspInvalidResponseLine = errors.New("lalmjpeg.rtsp: invalid response status line")
)

func NewErrRtspMessageTooLarge(max int) error {
	return fmt.Errorf("%w. max=%d", ErrRtspMessageTooLarge, max)
}

func NewErrRtspUnexpectedStatus(method string, code int) error {
	return fmt.Errorf("%w. method=%s, code=%d", ErrRtspUnexpectedStatus, method, code)
}

// ----- pkg/sdp -------------------------------------------------------------------------------------------------------

var ErrSdp = errors.New("lalmjpeg.sdp: fxxk")

// ----- pkg/logic -----------------------------------------------------------------------------------------------------

var ErrConfig = errors.New("lalmjpeg.logic: invalid config")
