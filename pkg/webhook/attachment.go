package webhook

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
)

const (
	sniffLen           = 261
	defaultContentType = "application/octet-stream"
)

// Attachment is a file sent alongside a message.
type Attachment struct {
	// Name is the original file name reported to the webhook.
	Name string

	// Content is streamed into the "file" multipart part.
	Content io.Reader

	closer io.Closer
}

// NewAttachment wraps an in-memory or caller-owned reader.
func NewAttachment(name string, content io.Reader) *Attachment {
	return &Attachment{Name: name, Content: content}
}

// OpenAttachment opens the file at path. The caller must Close it.
func OpenAttachment(path string) (*Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open attachment: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not stat attachment: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("attachment %s is a directory", path)
	}

	return &Attachment{
		Name:    filepath.Base(path),
		Content: f,
		closer:  f,
	}, nil
}

// Close releases the underlying file, if any.
func (a *Attachment) Close() error {
	if a == nil || a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// sniff peeks at the first bytes of the content to pick a part Content-Type.
// The returned reader still yields the full content.
func (a *Attachment) sniff() (string, io.Reader) {
	if a.Content == nil {
		return defaultContentType, eofReader{}
	}

	br := bufio.NewReaderSize(a.Content, sniffLen)
	head, _ := br.Peek(sniffLen)

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return defaultContentType, br
	}
	return kind.MIME.Value, br
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
