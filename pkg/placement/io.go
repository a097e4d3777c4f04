package placement

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Write emits the plan as the number of non-empty caches followed by one line
// per cache: the cache id and its videos
func (p *Plan) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(p.assignments))
	for _, a := range p.assignments {
		bw.WriteString(strconv.Itoa(a.Cache))
		for _, v := range a.Videos {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(v))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteFile writes the plan through a temporary file renamed into place,
// so readers never observe a partial plan
func WriteFile(fs afero.Fs, path string, p *Plan) (err error) {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create plan file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = fs.Remove(tmp.Name())
		}
	}()
	if err = p.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write plan: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	if err = fs.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

// Read parses a plan in the format produced by Write
func Read(r io.Reader) (*Plan, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	next := func() ([]int, error) {
		for sc.Scan() {
			line++
			fields := strings.Fields(sc.Text())
			if len(fields) == 0 {
				continue
			}
			values := make([]int, len(fields))
			for i, f := range fields {
				v, err := strconv.Atoi(f)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidPlan, line, err)
				}
				if v < 0 {
					return nil, fmt.Errorf("%w: line %d: negative id %d", ErrInvalidPlan, line, v)
				}
				values[i] = v
			}
			return values, nil
		}
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidPlan, line+1, io.ErrUnexpectedEOF)
	}

	head, err := next()
	if err != nil {
		return nil, err
	}
	if len(head) != 1 {
		return nil, fmt.Errorf("%w: line %d: expected the number of caches", ErrInvalidPlan, line)
	}
	byCache := make(map[int][]int, head[0])
	for i := 0; i < head[0]; i++ {
		rec, err := next()
		if err != nil {
			return nil, err
		}
		if _, dup := byCache[rec[0]]; dup {
			return nil, fmt.Errorf("%w: line %d: cache %d listed twice", ErrInvalidPlan, line, rec[0])
		}
		byCache[rec[0]] = rec[1:]
	}
	return NewPlan(byCache), nil
}

func ReadFile(fs afero.Fs, path string) (*Plan, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan: %w", err)
	}
	defer f.Close()
	return Read(f)
}
