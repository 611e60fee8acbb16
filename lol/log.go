// Package lol (log of location) is a small levelled logger that prints a
// timestamp, a coloured level tag and the source location of every line, so a
// failing relay or a rejected signature can be traced back to the call that
// reported it.
package lol

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
)

const (
	Off = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

// LevelNames are the textual names of the levels, indexed by level number.
var LevelNames = []string{"off", "fatal", "error", "warn", "info", "debug", "trace"}

type (
	// Ln prints its arguments separated by spaces.
	Ln func(a ...any)
	// F prints like fmt.Printf.
	F func(format string, a ...any)
	// S prints a spew dump of its arguments.
	S func(a ...any)
	// C only evaluates the closure if the level is enabled.
	C func(closure func() string)
	// Chk prints the error if it is not nil and reports whether it was.
	Chk func(e error) bool
	// Err formats an error, prints it and returns it.
	Err func(format string, a ...any) error

	// LevelPrinter is the set of printers for one level.
	LevelPrinter struct {
		Ln
		F
		S
		C
		Chk
		Err
	}

	// LevelSpec is the name and colouriser of a level.
	LevelSpec struct {
		ID        int
		Name      string
		Colorizer func(a ...any) string
	}
)

// LevelSpecs holds the tag and colour of each level.
var LevelSpecs = []LevelSpec{
	{Off, "", NoSprint},
	{Fatal, "FTL", color.New(color.BgRed, color.FgHiWhite).Sprint},
	{Error, "ERR", color.New(color.FgHiRed).Sprint},
	{Warn, "WRN", color.New(color.FgHiYellow).Sprint},
	{Info, "INF", color.New(color.FgHiGreen).Sprint},
	{Debug, "DBG", color.New(color.FgHiBlue).Sprint},
	{Trace, "TRC", color.New(color.FgHiMagenta).Sprint},
}

// NoSprint is a Colorizer that prints nothing.
func NoSprint(a ...any) string { return "" }

// Log is the printers for every level.
type Log struct{ F, E, W, I, D, T LevelPrinter }

// Check is the error checkers for every level.
type Check struct{ F, E, W, I, D, T Chk }

// Errorf is the error constructors for every level.
type Errorf struct{ F, E, W, I, D, T Err }

// Logger bundles the three views of one output.
type Logger struct {
	*Log
	*Check
	*Errorf
}

var (
	// Level is the current maximum level that is printed.
	Level atomic.Int32
	// NoTimeStamp suppresses the timestamp prefix, mostly for tests.
	NoTimeStamp atomic.Bool
	// Main is the process wide logger the shortcut packages point at.
	Main = &Logger{}

	msgCol = color.New(color.FgBlue).Sprint
	wmx    sync.Mutex
)

func init() {
	Main.Log, Main.Check, Main.Errorf = New(os.Stderr)
	SetLoggers(Info)
}

// SetLoggers sets the level by number.
func SetLoggers(level int) {
	if level < Off || level > Trace {
		level = Info
	}
	Level.Store(int32(level))
}

// GetLogLevel returns the number of a level name, Info if it is unknown.
func GetLogLevel(level string) (i int) {
	level = strings.ToLower(strings.TrimSpace(level))
	for i = range LevelNames {
		if level == LevelNames[i] {
			return i
		}
	}
	return Info
}

// SetLogLevel sets the level by name.
func SetLogLevel(level string) { SetLoggers(GetLogLevel(level)) }

// JoinStrings joins anything into a space separated string.
func JoinStrings(a ...any) (s string) {
	parts := make([]string, len(a))
	for i := range a {
		parts[i] = fmt.Sprint(a[i])
	}
	return strings.Join(parts, " ")
}

func emit(w io.Writer, l int32, msg string) {
	wmx.Lock()
	defer wmx.Unlock()
	_, _ = fmt.Fprintf(w, "%s%s %s %s\n",
		msgCol(TimeStamper()),
		LevelSpecs[l].Colorizer(LevelSpecs[l].Name),
		msg,
		msgCol(GetLoc(3)),
	)
}

// GetPrinter returns the printers of one level writing to w.
func GetPrinter(l int32, w io.Writer) LevelPrinter {
	enabled := func() bool { return Level.Load() >= l }
	return LevelPrinter{
		Ln: func(a ...any) {
			if enabled() {
				emit(w, l, JoinStrings(a...))
			}
		},
		F: func(format string, a ...any) {
			if enabled() {
				emit(w, l, fmt.Sprintf(format, a...))
			}
		},
		S: func(a ...any) {
			if enabled() {
				emit(w, l, spew.Sdump(a...))
			}
		},
		C: func(closure func() string) {
			if enabled() {
				emit(w, l, closure())
			}
		},
		Chk: func(e error) bool {
			if e == nil {
				return false
			}
			if enabled() {
				emit(w, l, e.Error())
			}
			return true
		},
		Err: func(format string, a ...any) error {
			err := fmt.Errorf(format, a...)
			if enabled() {
				emit(w, l, err.Error())
			}
			return err
		},
	}
}

// New creates a full set of printers writing to w.
func New(w io.Writer) (l *Log, c *Check, e *Errorf) {
	l = &Log{
		T: GetPrinter(Trace, w),
		D: GetPrinter(Debug, w),
		I: GetPrinter(Info, w),
		W: GetPrinter(Warn, w),
		E: GetPrinter(Error, w),
		F: GetPrinter(Fatal, w),
	}
	c = &Check{F: l.F.Chk, E: l.E.Chk, W: l.W.Chk, I: l.I.Chk, D: l.D.Chk, T: l.T.Chk}
	e = &Errorf{F: l.F.Err, E: l.E.Err, W: l.W.Err, I: l.I.Err, D: l.D.Err, T: l.T.Err}
	return
}

// TimeStamper generates the timestamp prefix of a line.
func TimeStamper() (s string) {
	if NoTimeStamp.Load() {
		return
	}
	return time.Now().Format("2006-01-02T15:04:05.000Z07:00 ")
}

// GetLoc returns the file:line of the caller skip frames up, trimmed to the
// last two path elements.
func GetLoc(skip int) (output string) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	if i := strings.LastIndexByte(file, '/'); i > 0 {
		if j := strings.LastIndexByte(file[:i], '/'); j >= 0 {
			file = file[j+1:]
		}
	}
	return fmt.Sprintf("%s:%d", file, line)
}
