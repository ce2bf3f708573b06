package source

import (
	"bytes"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
)

type fileKind int

const (
	kindUnknown fileKind = iota
	kindHTML
	kindZip
	kindSQLite
)

// enough to see past BOM, doctype and comments
const headerSize = 8192

var htmlType = filetype.NewType("html", "text/html")

func init() {
	filetype.AddMatcher(htmlType, matchHTML)
}

var htmlMarkers = [][]byte{
	[]byte("<!doctype html"),
	[]byte("<html"),
	[]byte("<head"),
	[]byte("<meta"),
	[]byte("<style"),
	[]byte("<table"),
}

func matchHTML(buf []byte) bool {
	buf = bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf"))
	for {
		buf = bytes.TrimLeft(buf, " \t\r\n")
		if !bytes.HasPrefix(buf, []byte("<!--")) {
			break
		}
		end := bytes.Index(buf, []byte("-->"))
		if end < 0 {
			return false
		}
		buf = buf[end+3:]
	}
	if len(buf) > 32 {
		buf = buf[:32]
	}
	buf = bytes.ToLower(buf)
	for _, m := range htmlMarkers {
		if bytes.HasPrefix(buf, m) {
			return true
		}
	}
	return false
}

func detect(head []byte) fileKind {
	kind, err := filetype.Match(head)
	if err != nil {
		return kindUnknown
	}
	return kindOf(kind)
}

func kindOf(kind types.Type) fileKind {
	switch kind.Extension {
	case "zip":
		return kindZip
	case "sqlite":
		return kindSQLite
	case htmlType.Extension:
		return kindHTML
	}
	return kindUnknown
}

func detectFile(path string) (fileKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return kindUnknown, err
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return kindUnknown, err
	}
	return detect(head[:n]), nil
}
