// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package framesource

import (
	"sync"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/naza/pkg/nazaatomic"
)

// Mailbox 只保存最新一帧的信箱
//
// 生产方 Publish 不阻塞，上一帧还没被取走时直接覆盖并计入丢帧
// 消费方 AcquireFrame 不阻塞，没有新帧时返回 base.ErrFrameNotReady
// 帧内存通过 NewFrame / ReleaseFrame 复用
//
type Mailbox struct {
	option MailboxOption

	mu     sync.Mutex
	latest *base.JpegFrame
	width  int
	height int
	closed bool

	pool sync.Pool

	publishedCount nazaatomic.Uint64
	droppedCount   nazaatomic.Uint64
	acquiredCount  nazaatomic.Uint64
	notReadyCount  nazaatomic.Uint64
	lastFrameSize  nazaatomic.Uint64
}

type MailboxOption struct {
	// SourceType 只用于统计展示
	SourceType string

	// DefaultWidth, DefaultHeight 还没有收到过帧时 FrameSize 返回的值，为0表示未知
	DefaultWidth  int
	DefaultHeight int
}

var defaultMailboxOption = MailboxOption{
	SourceType: "mailbox",
}

type ModMailboxOption func(option *MailboxOption)

func NewMailbox(modOptions ...ModMailboxOption) *Mailbox {
	option := defaultMailboxOption
	for _, fn := range modOptions {
		fn(&option)
	}

	m := &Mailbox{
		option: option,
		width:  option.DefaultWidth,
		height: option.DefaultHeight,
	}
	m.pool.New = func() interface{} {
		return &base.JpegFrame{}
	}
	return m
}

// NewFrame 从内存池中取一个帧，Buf长度为0，容量可能不为0
//
func (m *Mailbox) NewFrame() *base.JpegFrame {
	frame := m.pool.Get().(*base.JpegFrame)
	frame.Buf = frame.Buf[:0]
	frame.Width = 0
	frame.Height = 0
	frame.CaptureTime = time.Time{}
	return frame
}

// Publish 调用后frame的所有权转移给 Mailbox
//
func (m *Mailbox) Publish(frame *base.JpegFrame) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.recycle(frame)
		return
	}
	prev := m.latest
	m.latest = frame
	if frame.Width != 0 && frame.Height != 0 {
		m.width = frame.Width
		m.height = frame.Height
	}
	m.mu.Unlock()

	m.publishedCount.Add(1)
	m.lastFrameSize.Store(uint64(len(frame.Buf)))
	if prev != nil {
		m.droppedCount.Add(1)
		m.recycle(prev)
	}
}

func (m *Mailbox) AcquireFrame() (*base.JpegFrame, error) {
	m.mu.Lock()
	frame := m.latest
	m.latest = nil
	closed := m.closed
	m.mu.Unlock()

	if frame == nil {
		if closed {
			return nil, base.ErrFrameSourceClosed
		}
		m.notReadyCount.Add(1)
		return nil, base.ErrFrameNotReady
	}
	m.acquiredCount.Add(1)
	return frame, nil
}

func (m *Mailbox) ReleaseFrame(frame *base.JpegFrame) {
	m.recycle(frame)
}

func (m *Mailbox) FrameSize() (width, height int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width, m.height, m.width != 0 && m.height != 0
}

// Close 之后 Publish 的帧直接丢弃，AcquireFrame 返回 base.ErrFrameSourceClosed
//
func (m *Mailbox) Close() {
	m.mu.Lock()
	prev := m.latest
	m.latest = nil
	m.closed = true
	m.mu.Unlock()

	if prev != nil {
		m.recycle(prev)
	}
}

func (m *Mailbox) GetStat() base.StatSource {
	width, height, _ := m.FrameSize()
	return base.StatSource{
		Type:           m.option.SourceType,
		Width:          width,
		Height:         height,
		PublishedCount: m.publishedCount.Load(),
		DroppedCount:   m.droppedCount.Load(),
		AcquiredCount:  m.acquiredCount.Load(),
		NotReadyCount:  m.notReadyCount.Load(),
		LastFrameSize:  int(m.lastFrameSize.Load()),
	}
}

func (m *Mailbox) recycle(frame *base.JpegFrame) {
	if frame == nil {
		return
	}
	m.pool.Put(frame)
}
