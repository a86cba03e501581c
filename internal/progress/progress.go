// Package progress renders progress bars for the long-running phases of a
// run. The silent factory drops everything.
package progress

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bar is one progress bar.
type Bar interface {
	Inc(n int)
	SetMessage(msg string)
	FinishAndClear()
	FinishWithMessage(msg string)
	Println(msg string)
}

// Factory creates bars. Wait blocks until every bar has been rendered to
// completion.
type Factory interface {
	NewProgressBar(total int64) Bar
	Wait()
}

// Silent returns a factory whose bars do nothing.
func Silent() Factory {
	return silent{}
}

type silent struct{}

func (silent) NewProgressBar(int64) Bar { return silent{} }
func (silent) Wait()                    {}
func (silent) Inc(int)                  {}
func (silent) SetMessage(string)        {}
func (silent) FinishAndClear()          {}
func (silent) FinishWithMessage(string) {}
func (silent) Println(string)           {}

// MPB renders bars with mpb.
type MPB struct {
	p *mpb.Progress
}

// NewMPB returns a factory rendering to out.
func NewMPB(out io.Writer) *MPB {
	return &MPB{p: mpb.New(mpb.WithOutput(out), mpb.WithWidth(48))}
}

func (f *MPB) NewProgressBar(total int64) Bar {
	b := &mpbBar{factory: f}
	b.msg.Store("")
	b.bar = f.p.AddBar(total,
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string { return b.msg.Load().(string) }, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d / %d"),
			decor.Name(" "),
			decor.Elapsed(decor.ET_STYLE_GO),
		),
	)
	return b
}

func (f *MPB) Wait() {
	f.p.Wait()
}

// println prints msg above the running bars.
func (f *MPB) println(msg string) {
	fmt.Fprintln(f.p, msg)
}

type mpbBar struct {
	factory *MPB
	bar     *mpb.Bar
	msg     atomic.Value
}

func (b *mpbBar) Inc(n int) {
	b.bar.IncrBy(n)
}

func (b *mpbBar) SetMessage(msg string) {
	b.msg.Store(msg)
}

func (b *mpbBar) FinishAndClear() {
	b.bar.Abort(true)
}

func (b *mpbBar) FinishWithMessage(msg string) {
	b.msg.Store(msg)
	b.bar.SetTotal(-1, true)
}

func (b *mpbBar) Println(msg string) {
	b.factory.println(msg)
}
