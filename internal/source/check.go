package source

import (
	"bufio"
	"fmt"
	"os"
	"unicode/utf8"
)

// MaxLineBytes is the per-line ceiling the warehouse accepts for a single
// text value (16 MiB).
const MaxLineBytes = 16 * 1024 * 1024

// Report is the outcome of a pre-flight check on one file.
type Report struct {
	Name    string
	Size    int64
	Lines   int64
	MaxLine int64
	AvgLine float64
	Err     error
}

// Valid reports whether the file passed all checks.
func (r *Report) Valid() bool { return r.Err == nil }

// Check validates that a file is readable UTF-8 text and that no line
// exceeds MaxLineBytes. It is a pre-flight convenience and plays no part
// in the load itself.
func Check(f File) *Report {
	rep := &Report{Name: f.Name}

	info, err := os.Stat(f.Path)
	if err != nil {
		rep.Err = err
		return rep
	}
	rep.Size = info.Size()

	in, err := os.Open(f.Path)
	if err != nil {
		rep.Err = err
		return rep
	}
	defer in.Close()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), MaxLineBytes+1)

	var total int64
	for sc.Scan() {
		line := sc.Bytes()
		rep.Lines++
		n := int64(len(line))
		total += n
		if n > rep.MaxLine {
			rep.MaxLine = n
		}
		if n > MaxLineBytes {
			rep.Err = fmt.Errorf("line %d exceeds 16MB (%d bytes)", rep.Lines, n)
			return rep
		}
		if !utf8.Valid(line) {
			rep.Err = fmt.Errorf("line %d is not valid UTF-8", rep.Lines)
			return rep
		}
	}
	if err := sc.Err(); err != nil {
		rep.Err = err
		return rep
	}
	if rep.Lines > 0 {
		rep.AvgLine = float64(total) / float64(rep.Lines)
	}
	return rep
}
