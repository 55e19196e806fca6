package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// Multipart is a form body with text fields and at most one file, as the profile
// update expects.
type Multipart struct {
	body        []byte
	contentType string
}

// FilePart is the file of a Multipart body.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// NewMultipart encodes fields and, if file is not nil, the file.
func NewMultipart(fields map[string]string, file *FilePart) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := w.WriteField(name, fields[name]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if file != nil {
		fw, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(fw, file.Content); err != nil {
			return nil, fmt.Errorf("copy %s: %w", file.Filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	return &Multipart{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

// Reader returns a fresh reader over the encoded body.
func (m *Multipart) Reader() io.Reader {
	return bytes.NewReader(m.body)
}

func (m *Multipart) ContentType() string {
	return m.contentType
}
