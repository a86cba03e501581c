package librarian

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	goerrors "github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"github.com/sugawarayuuta/sonnet"
)

// DefaultBuffer is the channel capacity used when Options.Buffer is zero.
const DefaultBuffer = 256

// Options configures a Librarian.
type Options struct {
	// Trace receives every record as one JSON line.
	Trace io.Writer
	// Prune receives one human-readable line per PruneRecord.
	Prune io.Writer
	// Logger mirrors every record at debug level.
	Logger *logrus.Entry
	// RunID tags every trace line.
	RunID  string
	Buffer int
}

// Librarian owns the sending side of the record channel. A nil *Librarian
// drops every record.
type Librarian struct {
	records chan<- Record
	wg      sync.WaitGroup
	once    sync.Once
	err     error
}

type envelope struct {
	Run    string `json:"run,omitempty"`
	Kind   string `json:"kind"`
	Record Record `json:"record"`
}

// New starts the sink goroutine.
func New(opts Options) *Librarian {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Record, buffer)
	l := &Librarian{records: ch}
	l.wg.Add(1)
	go l.sink(ch, opts)
	return l
}

// Log forwards r to the sink. It blocks only while the channel is full.
func (l *Librarian) Log(r Record) {
	if l == nil {
		return
	}
	l.records <- r
}

// Close drains the channel, waits for the sink and returns the first write
// error it met.
func (l *Librarian) Close() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		close(l.records)
		l.wg.Wait()
	})
	return l.err
}

func (l *Librarian) sink(ch <-chan Record, opts Options) {
	defer l.wg.Done()
	var trace, prune *bufio.Writer
	if opts.Trace != nil {
		trace = bufio.NewWriter(opts.Trace)
	}
	if opts.Prune != nil {
		prune = bufio.NewWriter(opts.Prune)
	}
	fail := func(err error) {
		if l.err == nil {
			l.err = goerrors.Wrap(err, 1)
		}
	}

	for r := range ch {
		if opts.Logger != nil {
			opts.Logger.WithField("kind", r.Kind()).Debugf("%+v", r)
		}
		if trace != nil {
			line, err := sonnet.Marshal(envelope{Run: opts.RunID, Kind: r.Kind(), Record: r})
			if err != nil {
				fail(err)
				continue
			}
			trace.Write(line)
			if err := trace.WriteByte('\n'); err != nil {
				fail(err)
			}
		}
		if p, ok := r.(PruneRecord); ok && prune != nil {
			if _, err := fmt.Fprintf(prune,
				"round %d sbox %d iter %d: depth %d width %d (second %d) threshold LEW %d, %d candidates, deleted %d, size %d -> %d\n",
				p.Round, p.Pos, p.Iteration, p.Depth, p.Width, p.SecondWidth, p.Threshold,
				p.Candidates, p.Deleted, p.SizeBefore, p.SizeAfter); err != nil {
				fail(err)
			}
		}
	}

	for _, w := range []*bufio.Writer{trace, prune} {
		if w == nil {
			continue
		}
		if err := w.Flush(); err != nil {
			fail(err)
		}
	}
}
