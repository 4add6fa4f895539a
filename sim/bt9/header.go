package bt9

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Header is the metadata block at the top of a BT9 trace.
type Header struct {
	MinorVersion       uint32            `yaml:"bt9_minor_version"`
	HasPhysicalAddress bool              `yaml:"has_physical_address"`
	MD5                string            `yaml:"md5_checksum"`
	ConversionDate     string            `yaml:"conversion_date"`
	OriginalTracePath  string            `yaml:"original_stf_input_file"`
	Overflow           map[string]string `yaml:"overflow,omitempty"` // unrecognized keys, verbatim (with colon)

	overflowOrder []string
}

// Get looks up an unrecognized header key such as "total_instruction_count:".
// The trailing colon may be omitted.
func (h *Header) Get(key string) (string, bool) {
	if v, ok := h.Overflow[key]; ok {
		return v, true
	}
	if !strings.HasSuffix(key, ":") {
		v, ok := h.Overflow[key+":"]
		return v, ok
	}
	return "", false
}

// TraceName derives a short trace name from the original input path,
// assuming the "<dir>/<name>.<ext>.<compression>" convention.
func (h *Header) TraceName() string {
	name := h.OriginalTracePath
	for range 2 {
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[:i]
		}
	}
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Dump writes the header in trace syntax.
func (h *Header) Dump(w io.Writer) error {
	hasPhy := 0
	if h.HasPhysicalAddress {
		hasPhy = 1
	}
	_, err := fmt.Fprintf(w,
		"bt9_minor_version: %d\nhas_physical_address: %d\nmd5_checksum: %s\nconversion_date: %s\noriginal_stf_input_file: %s\n",
		h.MinorVersion, hasPhy, h.MD5, h.ConversionDate, h.OriginalTracePath)
	if err != nil {
		return err
	}
	for _, k := range h.overflowOrder {
		if _, err := fmt.Fprintf(w, "%s %s\n", k, h.Overflow[k]); err != nil {
			return err
		}
	}
	return nil
}

// readHeader checks the magic line and consumes header fields up to and
// including the node section marker.
func readHeader(src *Source, pc *parseContext) (Header, error) {
	h := Header{Overflow: make(map[string]string)}

	first, err := src.NextLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return h, pc.errorf(0, ErrFormat, "empty trace, expected %s", magicToken)
		}
		return h, err
	}
	if f := strings.Fields(first.Text); len(f) == 0 || f[0] != magicToken {
		return h, pc.errorf(first.Number, ErrFormat, "not a BT9 trace, expected %s", magicToken)
	}

	for {
		l, err := src.NextLine()
		if errors.Is(err, io.EOF) {
			return h, pc.errorf(src.LineNumber(), ErrFormat, "%s is missing", nodeSectionMarker)
		}
		if err != nil {
			return h, err
		}
		fields := l.Fields()
		if len(fields) == 0 {
			continue
		}
		if fields[0] == nodeSectionMarker {
			return h, nil
		}
		if err := h.parseField(l, fields, pc); err != nil {
			return h, err
		}
	}
}

func (h *Header) parseField(l Line, fields []string, pc *parseContext) error {
	key := fields[0]
	value := valueAfter(l.Text, key)
	token := ""
	if len(fields) > 1 {
		token = fields[1]
	}

	switch key {
	case "bt9_minor_version:":
		v, err := parseUint(token, 32)
		if err != nil {
			return pc.fieldError(l.Number, "bt9_minor_version", token, err)
		}
		h.MinorVersion = uint32(v)
	case "has_physical_address:":
		v, err := parseUint(token, 64)
		if err != nil {
			return pc.fieldError(l.Number, "has_physical_address", token, err)
		}
		h.HasPhysicalAddress = v != 0
	case "md5_checksum:":
		h.MD5 = value
	case "conversion_date:":
		h.ConversionDate = value
	case "original_stf_input_file:":
		h.OriginalTracePath = value
	default:
		if _, seen := h.Overflow[key]; !seen {
			h.overflowOrder = append(h.overflowOrder, key)
		}
		h.Overflow[key] = value
	}
	return nil
}
