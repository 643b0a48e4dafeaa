package extract

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
)

var errBinary = errors.New("file looks binary")

// ExtractText reads a plain-text or markdown file. Invalid UTF-8 sequences
// are replaced; files containing NUL bytes are rejected.
func ExtractText(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", errBinary
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	return strings.ToValidUTF8(string(data), "�"), nil
}
