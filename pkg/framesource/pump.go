// Copyright 2024, Chef.  All rights reserved.
// https://github.com/q191201771/lal
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package framesource

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/q191201771/lalmjpeg/pkg/base"
	"github.com/q191201771/naza/pkg/mock"
)

var Log = base.Log

type IClock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

var Clock IClock = mock.NewStdClock()

// IFrameProducer 生成帧的内容，比如读文件、编码测试图案
//
type IFrameProducer interface {
	// Produce 将第index帧写入dst，没有更多帧时返回io.EOF
	Produce(index int, dst *base.JpegFrame) error
}

type PumpOption struct {
	Fps int
}

var defaultPumpOption = PumpOption{
	Fps: 10,
}

type ModPumpOption func(option *PumpOption)

// Pump 按固定帧率从 IFrameProducer 取帧，投递到 Mailbox（类似于摄像头驱动的采集循环）
//
type Pump struct {
	uniqueKey string
	option    PumpOption
	producer  IFrameProducer
	mailbox   *Mailbox
}

func NewPump(producer IFrameProducer, mailbox *Mailbox, modOptions ...ModPumpOption) *Pump {
	option := defaultPumpOption
	for _, fn := range modOptions {
		fn(&option)
	}
	if option.Fps <= 0 {
		option.Fps = defaultPumpOption.Fps
	}

	return &Pump{
		uniqueKey: base.GenUkFramePump(),
		option:    option,
		producer:  producer,
		mailbox:   mailbox,
	}
}

// RunLoop 阻塞直到ctx结束或者 IFrameProducer 没有更多的帧
//
// @return 生产帧失败时返回错误，正常结束返回nil
//
func (p *Pump) RunLoop(ctx context.Context) error {
	period := time.Second / time.Duration(p.option.Fps)
	Log.Infof("[%s] pump start. fps=%d, period=%v", p.uniqueKey, p.option.Fps, period)

	next := Clock.Now()
	for index := 0; ; index++ {
		if ctx.Err() != nil {
			Log.Infof("[%s] pump stop. count=%d", p.uniqueKey, index)
			return nil
		}

		frame := p.mailbox.NewFrame()
		if err := p.producer.Produce(index, frame); err != nil {
			p.mailbox.ReleaseFrame(frame)
			if errors.Is(err, io.EOF) {
				Log.Infof("[%s] pump end of frames. count=%d", p.uniqueKey, index)
				return nil
			}
			Log.Errorf("[%s] produce frame failed. index=%d, err=%+v", p.uniqueKey, index, err)
			return err
		}
		if frame.CaptureTime.IsZero() {
			frame.CaptureTime = Clock.Now()
		}
		p.mailbox.Publish(frame)

		next = next.Add(period)
		now := Clock.Now()
		if d := next.Sub(now); d > 0 {
			Clock.Sleep(d)
		} else if -d > period {
			next = now
		}
	}
}
