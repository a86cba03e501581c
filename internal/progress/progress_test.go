package progress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSilent(t *testing.T) {
	f := Silent()
	bar := f.NewProgressBar(10)
	assert.NotPanics(t, func() {
		bar.Inc(3)
		bar.SetMessage("absorbing")
		bar.Println("line")
		bar.FinishWithMessage("done")
		bar.FinishAndClear()
		f.Wait()
	})
}

func TestMPB_CompletesBars(t *testing.T) {
	f := NewMPB(io.Discard)

	done := f.NewProgressBar(4)
	done.SetMessage("round 1")
	done.Inc(4)
	done.FinishWithMessage("round 1 done")

	dropped := f.NewProgressBar(100)
	dropped.Inc(1)
	dropped.FinishAndClear()

	assert.NotPanics(t, f.Wait)
}

func TestMPB_PrintlnAboveBars(t *testing.T) {
	var out bytes.Buffer
	f := NewMPB(&out)

	bar := f.NewProgressBar(2)
	bar.Println("round 1 absorbed")
	bar.Inc(2)
	bar.FinishWithMessage("done")
	f.Wait()

	assert.Contains(t, out.String(), "round 1 absorbed\n")
}
