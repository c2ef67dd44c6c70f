package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"
)

// The format ignores zoom values below this
const minZoom = 10

var (
	// ErrDuplicateSheet is returned when appending a sheet whose name is
	// already in use.
	ErrDuplicateSheet = errors.New("workbook: duplicate sheet name")
	// ErrEmptyWorkbook is returned when saving a workbook with no sheets.
	ErrEmptyWorkbook = errors.New("workbook: no sheets")
	// ErrLocked is returned when another process is writing the same file.
	ErrLocked = errors.New("workbook: output is locked by another process")
)

// WriteError reports a workbook that could not be written to Path. When it is
// returned no file has been created at Path.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write workbook %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Workbook is an ordered, append-only list of sheets.
type Workbook struct {
	sheets []*Sheet
	names  map[string]int
}

// New returns an empty workbook.
func New() *Workbook {
	return &Workbook{
		names: make(map[string]int),
	}
}

// Append adds s after every sheet already in the workbook.
func (w *Workbook) Append(s *Sheet) error {
	if _, ok := w.names[s.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSheet, s.Name)
	}
	w.names[s.Name] = len(w.sheets)
	w.sheets = append(w.sheets, s)
	return nil
}

// Len returns the number of sheets.
func (w *Workbook) Len() int {
	return len(w.sheets)
}

// Sheets returns the sheets in order.
func (w *Workbook) Sheets() []*Sheet {
	return append([]*Sheet(nil), w.sheets...)
}

// Sheet returns the sheet with the given name, or nil.
func (w *Workbook) Sheet(name string) *Sheet {
	if i, ok := w.names[name]; ok {
		return w.sheets[i]
	}
	return nil
}

type styleCache struct {
	f   *excelize.File
	ids map[string]int
}

func (c *styleCache) fill(hex string) (int, error) {
	if id, ok := c.ids[hex]; ok {
		return id, nil
	}
	id, err := c.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{hex},
		},
	})
	if err != nil {
		return 0, err
	}
	c.ids[hex] = id
	return id, nil
}

func writeSheet(f *excelize.File, s *Sheet, styles *styleCache) error {
	for row := 0; row < s.Height; row++ {
		// Style each run of identical cells as one range
		for col := 0; col < s.Width; {
			hex := s.Fill(row, col)
			end := col
			for end+1 < s.Width && s.Fill(row, end+1) == hex {
				end++
			}

			id, err := styles.fill(hex)
			if err != nil {
				return err
			}

			from, err := excelize.CoordinatesToCellName(col+1, row+1)
			if err != nil {
				return err
			}
			to, err := excelize.CoordinatesToCellName(end+1, row+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(s.Name, from, to, id); err != nil {
				return err
			}

			col = end + 1
		}
	}

	last, err := excelize.ColumnNumberToName(s.Width)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(s.Name, "A", last, s.ColWidth); err != nil {
		return err
	}

	if s.Zoom != nil {
		z := *s.Zoom
		if z < minZoom {
			z = minZoom
		}
		if err := f.SetSheetView(s.Name, 0, &excelize.ViewOptions{ZoomScale: &z}); err != nil {
			return err
		}
	}

	return nil
}

func (w *Workbook) file() (*excelize.File, error) {
	f := excelize.NewFile()
	styles := &styleCache{
		f:   f,
		ids: make(map[string]int),
	}

	for i, s := range w.sheets {
		if i == 0 {
			// Reuse the sheet every new file starts with
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			f.Close()
			return nil, err
		}

		if err := writeSheet(f, s, styles); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)

	return f, nil
}

// Save writes the workbook to path. The file is written alongside path and
// renamed into place so path never holds a partial workbook.
func (w *Workbook) Save(path string) error {
	if len(w.sheets) == 0 {
		return &WriteError{Path: path, Err: ErrEmptyWorkbook}
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return &WriteError{Path: path, Err: fmt.Errorf("acquire lock: %w", err)}
	}
	if !ok {
		return &WriteError{Path: path, Err: ErrLocked}
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	if err := w.write(path); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func (w *Workbook) write(path string) error {
	f, err := w.file()
	if err != nil {
		return err
	}
	defer f.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := f.WriteTo(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Temporary files are private, the workbook takes the mode of any file it
	// replaces
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
