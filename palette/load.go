package palette

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/lucasb-eyer/go-colorful"
)

var (
	// ErrMalformed is wrapped by a LoadError when an entry cannot be parsed.
	ErrMalformed = errors.New("palette: malformed entry")
	// ErrUnknownBuiltin is wrapped by a LoadError when a built-in palette
	// does not exist.
	ErrUnknownBuiltin = errors.New("palette: unknown built-in palette")
)

// LoadError reports a palette source that is missing, empty or malformed.
type LoadError struct {
	Source string
	Line   int // line or entry number, zero when not tied to one
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load palette %q: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("load palette %q: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Format identifies the layout of a palette file.
type Format int

const (
	// FormatText is one color per line, either "R G B", "R,G,B" or "#RRGGBB".
	FormatText Format = iota
	// FormatGPL is a GIMP palette.
	FormatGPL
	// FormatJSON is a JSON array of [r,g,b] triples or color objects.
	FormatJSON
)

// FormatFromPath guesses the format of a palette file from its extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gpl":
		return FormatGPL
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Load reads a palette from source, which is either a file path or a
// built-in reference such as "builtin:xterm256".
func Load(source string) (*Palette, error) {
	if name, ok := strings.CutPrefix(source, BuiltinPrefix); ok {
		p, ok := Builtin(name)
		if !ok {
			return nil, &LoadError{Source: source, Err: fmt.Errorf("%w: %q", ErrUnknownBuiltin, name)}
		}
		return p, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	defer f.Close()

	p, err := Decode(f, FormatFromPath(source))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Source = source
			return nil, le
		}
		return nil, &LoadError{Source: source, Err: err}
	}
	return p, nil
}

// Decode reads a palette in the given format from r.
func Decode(r io.Reader, format Format) (*Palette, error) {
	var (
		colors []RGB
		err    error
	)
	switch format {
	case FormatGPL:
		colors, err = decodeGPL(r)
	case FormatJSON:
		colors, err = decodeJSON(r)
	default:
		colors, err = decodeText(r)
	}
	if err != nil {
		return nil, err
	}
	if len(colors) == 0 {
		return nil, &LoadError{Err: ErrEmpty}
	}
	return New(colors)
}

func parseChannel(s string) (uint8, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: channel %q is not an integer", ErrMalformed, s)
	}
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("%w: channel %d out of range", ErrMalformed, v)
	}
	return uint8(v), nil
}

func parseTriple(fields []string) (RGB, error) {
	if len(fields) != 3 {
		return RGB{}, fmt.Errorf("%w: expected 3 channels, got %d", ErrMalformed, len(fields))
	}
	var c [3]uint8
	for i, f := range fields {
		v, err := parseChannel(f)
		if err != nil {
			return RGB{}, err
		}
		c[i] = v
	}
	return RGB{c[0], c[1], c[2]}, nil
}

func isHex6(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// ParseHex parses a color written as "RRGGBB" or "#RRGGBB".
func ParseHex(s string) (RGB, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if !isHex6(s) {
		return RGB{}, fmt.Errorf("%w: %q is not a hex color", ErrMalformed, s)
	}
	c, err := colorful.Hex("#" + strings.ToLower(s))
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

func splitFields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func decodeText(r io.Reader) ([]RGB, error) {
	var colors []RGB
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}

		var (
			c   RGB
			err error
		)
		switch fields := splitFields(line); {
		case strings.HasPrefix(line, "#"):
			// Either "#RRGGBB" or a comment
			if !isHex6(fields[0][1:]) || len(fields) > 1 {
				continue
			}
			c, err = ParseHex(fields[0])
		case len(fields) == 1 && isHex6(fields[0]):
			c, err = ParseHex(fields[0])
		default:
			c, err = parseTriple(fields)
		}
		if err != nil {
			return nil, &LoadError{Line: n, Err: err}
		}
		colors = append(colors, c)
	}
	if err := s.Err(); err != nil {
		return nil, &LoadError{Err: err}
	}
	return colors, nil
}

const gplMagic = "GIMP Palette"

func decodeGPL(r io.Reader) ([]RGB, error) {
	var colors []RGB
	s := bufio.NewScanner(r)
	header := false
	for n := 1; s.Scan(); n++ {
		line := strings.TrimSpace(s.Text())
		switch {
		case !header:
			if line != gplMagic {
				return nil, &LoadError{Line: n, Err: fmt.Errorf("%w: missing %q header", ErrMalformed, gplMagic)}
			}
			header = true
			continue
		case line == "", strings.HasPrefix(line, "#"), strings.HasPrefix(line, "Name:"), strings.HasPrefix(line, "Columns:"):
			continue
		}

		// Anything after the three channels is the color name
		fields := strings.Fields(line)
		if len(fields) > 3 {
			fields = fields[:3]
		}
		c, err := parseTriple(fields)
		if err != nil {
			return nil, &LoadError{Line: n, Err: err}
		}
		colors = append(colors, c)
	}
	if err := s.Err(); err != nil {
		return nil, &LoadError{Err: err}
	}
	return colors, nil
}

type jsonColor struct {
	HexString string `json:"hexString"`
	RGB       *struct {
		R *json.Number `json:"r"`
		G *json.Number `json:"g"`
		B *json.Number `json:"b"`
	} `json:"rgb"`
}

func decodeJSONEntry(raw json.RawMessage) (RGB, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var triple []json.Number
		if err := json.Unmarshal(raw, &triple); err != nil {
			return RGB{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		fields := make([]string, len(triple))
		for i, v := range triple {
			fields[i] = v.String()
		}
		return parseTriple(fields)
	}

	var jc jsonColor
	if err := json.Unmarshal(raw, &jc); err != nil {
		return RGB{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case jc.RGB != nil:
		if jc.RGB.R == nil || jc.RGB.G == nil || jc.RGB.B == nil {
			return RGB{}, fmt.Errorf("%w: rgb object needs r, g and b", ErrMalformed)
		}
		return parseTriple([]string{jc.RGB.R.String(), jc.RGB.G.String(), jc.RGB.B.String()})
	case jc.HexString != "":
		return ParseHex(jc.HexString)
	default:
		return RGB{}, fmt.Errorf("%w: no rgb or hexString", ErrMalformed)
	}
}

func decodeJSON(r io.Reader) ([]RGB, error) {
	var entries []json.RawMessage
	d := json.NewDecoder(r)
	d.UseNumber()
	if err := d.Decode(&entries); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
	}

	colors := make([]RGB, 0, len(entries))
	for i, raw := range entries {
		c, err := decodeJSONEntry(raw)
		if err != nil {
			return nil, &LoadError{Line: i + 1, Err: err}
		}
		colors = append(colors, c)
	}
	return colors, nil
}

// Encode writes p to w as a GIMP palette.
func Encode(w io.Writer, p *Palette, name string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\nName: %s\nColumns: 16\n#\n", gplMagic, name)
	for _, c := range p.colors {
		fmt.Fprintf(bw, "%3d %3d %3d\t%s\n", c.R, c.G, c.B, c)
	}
	return bw.Flush()
}

// Save writes p to path as a GIMP palette.
func Save(path string, p *Palette) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := Encode(f, p, name); err != nil {
		return err
	}
	return f.Close()
}
