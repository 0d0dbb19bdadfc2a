package attachment

import (
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLimit matches the number of bytes mimetype inspects by default.
const sniffLimit = 3072

const (
	MIMEPDF  = "application/pdf"
	MIMEDOC  = "application/msword"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var ErrUnsupportedType = errors.New("only PDF, DOC and DOCX files are allowed")

// allowed maps an accepted extension to its canonical MIME type and the
// container types that may be reported when the head alone is inconclusive.
var allowed = map[string]struct {
	mime       string
	containers []string
}{
	".pdf":  {mime: MIMEPDF},
	".doc":  {mime: MIMEDOC, containers: []string{"application/x-ole-storage"}},
	".docx": {mime: MIMEDOCX, containers: []string{"application/zip"}},
}

// Detect reads the head of r and returns the accepted MIME type together with
// the bytes consumed, so the caller can replay them.
func Detect(r io.Reader, filename string) (string, []byte, error) {
	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	mime, err := DetectHead(head, filename)
	return mime, head, err
}

func DetectHead(head []byte, filename string) (string, error) {
	if len(head) == 0 {
		return "", ErrUnsupportedType
	}
	rule, ok := allowed[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", ErrUnsupportedType
	}

	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(rule.mime) {
			return rule.mime, nil
		}
	}
	for _, container := range rule.containers {
		if detected.Is(container) {
			return rule.mime, nil
		}
	}
	return "", ErrUnsupportedType
}
