/*
Package frame finds and decodes the numbered image files that make up a frame
sequence.

Frames are named with a fixed-width, zero-padded index starting at 1 followed
by a fixed extension, for example 0001.jpg, 0002.jpg and so on. Directory
listings are never trusted for ordering; every index is parsed from its file
name and the set is sorted numerically.
*/
package frame

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

const maxDigits = 9

// Naming describes how frame files are named.
type Naming struct {
	// Digits is the minimum width of the zero-padded index.
	Digits int
	// Ext is the file extension, including the leading dot. It is matched
	// without regard to case.
	Ext string
}

// DefaultNaming matches 0001.jpg, 0002.jpg, ...
var DefaultNaming = Naming{
	Digits: 4,
	Ext:    ".jpg",
}

// Validate checks the naming convention is usable.
func (n Naming) Validate() error {
	if n.Digits < 1 || n.Digits > maxDigits {
		return fmt.Errorf("frame: digits must be between 1 and %d", maxDigits)
	}
	if !strings.HasPrefix(n.Ext, ".") || len(n.Ext) < 2 || strings.ContainsAny(n.Ext, `/\`) {
		return fmt.Errorf("frame: invalid extension %q", n.Ext)
	}
	return nil
}

// Name returns the zero-padded index, which also names the frame's sheet.
func (n Naming) Name(index int) string {
	return fmt.Sprintf("%0*d", n.Digits, index)
}

// Filename returns the file name of the frame with the given index.
func (n Naming) Filename(index int) string {
	return n.Name(index) + n.Ext
}

// Parse returns the index of the frame file called name. It reports false
// for any name that is not exactly what Filename would produce.
func (n Naming) Parse(name string) (int, bool) {
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, n.Ext) {
		return 0, false
	}
	stem := strings.TrimSuffix(name, ext)
	if stem == "" || strings.IndexFunc(stem, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, false
	}
	index, err := strconv.Atoi(stem)
	if err != nil || index < 1 || n.Name(index) != stem {
		return 0, false
	}
	return index, true
}

// NotFoundError reports a frame expected within the selected range that does
// not exist.
type NotFoundError struct {
	Index int
	Path  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("frame %d not found: %s", e.Index, e.Path)
}

func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// DecodeError reports a frame file that exists but cannot be decoded.
type DecodeError struct {
	Index int
	Path  string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("frame %d: decode %s: %v", e.Index, e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Set is the collection of frame files found in a directory.
type Set struct {
	dir     string
	naming  Naming
	files   map[int]string
	indices []int
}

// Scan lists dir and collects every file that follows the naming
// convention. Anything else in the directory is ignored.
func Scan(dir string, naming Naming) (*Set, error) {
	if err := naming.Validate(); err != nil {
		return nil, err
	}

	d, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	info, err := d.Stat()
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("frame: %s is not a directory", dir)
	}

	entries, err := d.ReadDir(0)
	if err != nil {
		return nil, err
	}

	s := &Set{
		dir:    dir,
		naming: naming,
		files:  make(map[int]string),
	}
	for _, entry := range entries {
		// Ignore hidden files and anything that isn't a regular file
		if strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
			continue
		}
		index, ok := naming.Parse(entry.Name())
		if !ok {
			continue
		}
		if _, dup := s.files[index]; dup {
			// Same index with a different case of extension
			return nil, fmt.Errorf("frame: more than one file for frame %d", index)
		}
		s.files[index] = entry.Name()
		s.indices = append(s.indices, index)
	}
	sort.Ints(s.indices)

	return s, nil
}

// Naming returns the naming convention the set was scanned with.
func (s *Set) Naming() Naming {
	return s.naming
}

// Len returns the number of frames found.
func (s *Set) Len() int {
	return len(s.indices)
}

// Highest returns the highest frame index found, or zero if there are no
// frames.
func (s *Set) Highest() int {
	if len(s.indices) == 0 {
		return 0
	}
	return s.indices[len(s.indices)-1]
}

// Contiguous returns the highest index n such that every frame from 1 to n
// exists.
func (s *Set) Contiguous() int {
	n := 0
	for _, index := range s.indices {
		if index != n+1 {
			break
		}
		n = index
	}
	return n
}

// Missing returns the indices between 1 and upTo that have no frame.
func (s *Set) Missing(upTo int) []int {
	var missing []int
	for i := 1; i <= upTo; i++ {
		if _, ok := s.files[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Path returns the path of the frame with the given index, whether or not it
// exists.
func (s *Set) Path(index int) string {
	if name, ok := s.files[index]; ok {
		return filepath.Join(s.dir, name)
	}
	return filepath.Join(s.dir, s.naming.Filename(index))
}

// Load decodes the frame with the given index. It also returns the SHA-1 of
// the complete file as uppercase hex.
func (s *Set) Load(index int) (image.Image, string, error) {
	path := s.Path(index)
	if _, ok := s.files[index]; !ok {
		return nil, "", &NotFoundError{Index: index, Path: path}
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", &NotFoundError{Index: index, Path: path}
		}
		return nil, "", &DecodeError{Index: index, Path: path, Err: err}
	}
	defer f.Close()

	h := sha1.New()
	m, _, err := image.Decode(io.TeeReader(f, h))
	if err != nil {
		return nil, "", &DecodeError{Index: index, Path: path, Err: err}
	}

	// The decoder need not read to the end of the file
	if _, err := io.Copy(h, f); err != nil {
		return nil, "", &DecodeError{Index: index, Path: path, Err: err}
	}

	if b := m.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, "", &DecodeError{Index: index, Path: path, Err: errors.New("image has no pixels")}
	}

	return m, fmt.Sprintf("%X", h.Sum(nil)), nil
}
