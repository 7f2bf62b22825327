// Package netx holds HTTP body helpers used by the upload client.
package netx

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// Field is one plain form field of a multipart body.
type Field struct {
	Name  string
	Value string
}

// FilePart describes the single file part of a multipart body.
type FilePart struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// MultipartBody is a multipart/form-data request body whose length is known
// up front. The file part's bytes are read through a ProgressReader, so
// progress reflects what the transport actually consumed.
type MultipartBody struct {
	Reader        io.Reader
	ContentType   string
	ContentLength int64
}

// DefaultFileName names a file part whose FilePart.FileName is empty.
// Multipart readers treat a part with filename="" as a plain value.
const DefaultFileName = "blob"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// NewMultipartBody lays out fields first and the file part last. onProgress
// may be nil; otherwise it receives the cumulative number of file bytes read.
func NewMultipartBody(fields []Field, file FilePart, onProgress func(int64)) (*MultipartBody, error) {
	var head bytes.Buffer
	w := multipart.NewWriter(&head)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f.Name, err)
		}
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fileName := file.FileName
	if fileName == "" {
		fileName = DefaultFileName
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.FieldName), quoteEscaper.Replace(fileName)))
	h.Set("Content-Type", contentType)
	if _, err := w.CreatePart(h); err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}

	// multipart.Writer writes straight through, so everything up to here is
	// the prefix and whatever Close writes is the trailer
	prefix := append([]byte(nil), head.Bytes()...)
	head.Reset()
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}
	trailer := append([]byte(nil), head.Bytes()...)

	return &MultipartBody{
		Reader: io.MultiReader(
			bytes.NewReader(prefix),
			NewProgressReader(bytes.NewReader(file.Data), onProgress),
			bytes.NewReader(trailer),
		),
		ContentType:   w.FormDataContentType(),
		ContentLength: int64(len(prefix) + len(file.Data) + len(trailer)),
	}, nil
}

// ProgressReader reports the cumulative number of bytes read from the
// wrapped reader after every Read that returned data.
type ProgressReader struct {
	r    io.Reader
	read int64
	fn   func(int64)
}

func NewProgressReader(r io.Reader, fn func(int64)) *ProgressReader {
	return &ProgressReader{r: r, fn: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.fn != nil {
			p.fn(p.read)
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (p *ProgressReader) BytesRead() int64 {
	return p.read
}

// ReadErrorBody returns up to limit bytes of an error response body for
// inclusion in error messages.
func ReadErrorBody(r io.Reader, limit int64) string {
	b, _ := io.ReadAll(io.LimitReader(r, limit))
	return strings.TrimSpace(string(b))
}
