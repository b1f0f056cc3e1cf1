// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package framesource_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/lalmjpeg/pkg/framesource"
	"github.com/q191201771/lalmjpeg/pkg/mjpeg"
	"github.com/q191201771/naza/pkg/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time

	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func useFakeClock(t *testing.T) *fakeClock {
	c := &fakeClock{now: time.Unix(1700000000, 0)}
	prev := framesource.Clock
	framesource.Clock = c
	t.Cleanup(func() {
		framesource.Clock = prev
	})
	return c
}

func encodeJpeg(t *testing.T, width, height int) []byte {
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, width, height)), nil)
	assert.Equal(t, nil, err)
	return buf.Bytes()
}

func TestMailbox(t *testing.T) {
	m := framesource.NewMailbox(func(option *framesource.MailboxOption) {
		option.SourceType = "test"
		option.DefaultWidth = 320
		option.DefaultHeight = 240
	})

	w, h, ok := m.FrameSize()
	assert.Equal(t, true, ok)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)

	_, err := m.AcquireFrame()
	assert.Equal(t, base.ErrFrameNotReady, err)

	f1 := m.NewFrame()
	f1.Buf = append(f1.Buf, 1, 2, 3)
	m.Publish(f1)
	f2 := m.NewFrame()
	f2.Buf = append(f2.Buf, 4, 5)
	f2.Width = 640
	f2.Height = 480
	m.Publish(f2)

	// 只能取到最新的一帧
	f, err := m.AcquireFrame()
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte{4, 5}, f.Buf)
	m.ReleaseFrame(f)

	_, err = m.AcquireFrame()
	assert.Equal(t, base.ErrFrameNotReady, err)

	w, h, _ = m.FrameSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 480, h)

	stat := m.GetStat()
	assert.Equal(t, "test", stat.Type)
	assert.Equal(t, uint64(2), stat.PublishedCount)
	assert.Equal(t, uint64(1), stat.DroppedCount)
	assert.Equal(t, uint64(1), stat.AcquiredCount)
	assert.Equal(t, uint64(2), stat.NotReadyCount)
	assert.Equal(t, 2, stat.LastFrameSize)

	m.Close()
	_, err = m.AcquireFrame()
	assert.Equal(t, base.ErrFrameSourceClosed, err)
	m.Publish(m.NewFrame())
	assert.Equal(t, uint64(2), m.GetStat().PublishedCount)
}

func TestMailbox_NewFrameReset(t *testing.T) {
	m := framesource.NewMailbox()
	for i := 0; i < 8; i++ {
		f := m.NewFrame()
		assert.Equal(t, 0, len(f.Buf))
		assert.Equal(t, 0, f.Width)
		assert.Equal(t, 0, f.Height)
		assert.Equal(t, true, f.CaptureTime.IsZero())

		// 回收的帧带着上一次的内容
		f.Buf = append(f.Buf, 1, 2, 3)
		f.Width = 64
		f.Height = 48
		f.CaptureTime = time.Now()
		m.Publish(f)
		f, err := m.AcquireFrame()
		assert.Equal(t, nil, err)
		m.ReleaseFrame(f)
	}
}

func TestMailbox_UnknownSize(t *testing.T) {
	m := framesource.NewMailbox()
	_, _, ok := m.FrameSize()
	assert.Equal(t, false, ok)
}

func TestTestPattern(t *testing.T) {
	useFakeClock(t)

	p := framesource.NewTestPattern(320, 240, 80)
	frame := &base.JpegFrame{}
	for i := 0; i < 3; i++ {
		err := p.Produce(i, frame)
		assert.Equal(t, nil, err)
		assert.Equal(t, 320, frame.Width)
		assert.Equal(t, 240, frame.Height)

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame.Buf))
		assert.Equal(t, nil, err)
		assert.Equal(t, 320, cfg.Width)
		assert.Equal(t, 240, cfg.Height)

		info, err := mjpeg.Analyze(frame.Buf, frame.Width, frame.Height)
		assert.Equal(t, nil, err)
		assert.Equal(t, true, info.ScanLen > 0)
	}
}

func TestLoadJpegFiles(t *testing.T) {
	dir := t.TempDir()
	a := encodeJpeg(t, 16, 16)
	b := encodeJpeg(t, 32, 16)
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "002.jpg"), b, 0644))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "001.JPEG"), a, 0644))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644))
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "bad.jpg"), []byte("not jpeg"), 0644))

	frames, err := framesource.LoadJpegFiles(dir)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(frames))
	assert.Equal(t, a, frames[0])
	assert.Equal(t, b, frames[1])

	mjpegFile := filepath.Join(dir, "stream.mjpeg")
	assert.Equal(t, nil, os.WriteFile(mjpegFile, append(append([]byte{}, a...), b...), 0644))
	frames, err = framesource.LoadJpegFiles(mjpegFile)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(frames))

	_, err = framesource.LoadJpegFiles(filepath.Join(dir, "readme.txt"))
	assert.Equal(t, true, errors.Is(err, base.ErrFrameSourceNoFrame))

	_, err = framesource.LoadJpegFiles(filepath.Join(dir, "not_exist"))
	assert.IsNotNil(t, err)
}

func TestPump(t *testing.T) {
	clock := useFakeClock(t)

	dir := t.TempDir()
	for i, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, name), encodeJpeg(t, 16*(i+1), 16), 0644))
	}
	producer, err := framesource.NewFileProducer(dir, false)
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, producer.FrameCount())

	m := framesource.NewMailbox()
	pump := framesource.NewPump(producer, m, func(option *framesource.PumpOption) {
		option.Fps = 10
	})
	err = pump.RunLoop(context.Background())
	assert.Equal(t, nil, err)

	stat := m.GetStat()
	assert.Equal(t, uint64(3), stat.PublishedCount)
	assert.Equal(t, uint64(2), stat.DroppedCount)
	assert.Equal(t, 48, stat.Width)

	// 每帧之后等待一个周期
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond, 100 * time.Millisecond}, clock.sleeps)
}

func TestPump_Cancel(t *testing.T) {
	useFakeClock(t)

	ctx, cancel := context.WithCancel(context.Background())
	m := framesource.NewMailbox()
	n := 0
	producer := producerFunc(func(index int, dst *base.JpegFrame) error {
		n++
		if index == 4 {
			cancel()
		}
		dst.Buf = append(dst.Buf, 0xFF, 0xD8)
		return nil
	})
	err := framesource.NewPump(producer, m).RunLoop(ctx)
	assert.Equal(t, nil, err)
	assert.Equal(t, 5, n)

	errProduce := errors.New("device error")
	err = framesource.NewPump(producerFunc(func(index int, dst *base.JpegFrame) error {
		return errProduce
	}), m).RunLoop(context.Background())
	assert.Equal(t, errProduce, err)
}

type producerFunc func(index int, dst *base.JpegFrame) error

func (f producerFunc) Produce(index int, dst *base.JpegFrame) error {
	return f(index, dst)
}

func TestFileProducer_Recursive(t *testing.T) {
	dir := t.TempDir()
	a := encodeJpeg(t, 16, 16)
	assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, "a.jpg"), a, 0644))

	p, err := framesource.NewFileProducer(dir, true)
	assert.Equal(t, nil, err)
	frame := &base.JpegFrame{}
	for i := 0; i < 5; i++ {
		assert.Equal(t, nil, p.Produce(i, frame))
		assert.Equal(t, a, frame.Buf)
		assert.Equal(t, 16, frame.Width)
	}
}
