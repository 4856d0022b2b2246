package draft

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MaxFileSize is the largest accepted attachment (10 MiB).
const MaxFileSize = 10 * 1024 * 1024

var fileSizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// FormatFileSize renders size on a base-1024 ladder with two decimals,
// e.g. 2048 -> "2.00 KB".
func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}

	value := float64(size)
	i := 0
	for value >= 1024 && i < len(fileSizeUnits)-1 {
		value /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", value, fileSizeUnits[i])
}

// FileHandle is a raw file selected for upload. Open may be called more than
// once: once for the preview and again when the listing is saved.
type FileHandle struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Preview is the display record of an attachment.
type Preview struct {
	FileName string `json:"file_name"`
	FileSize string `json:"file_size"`
	Content  string `json:"content"`

	// Source is nil for images that came with the baseline.
	Source *FileHandle `json:"-"`
}

// IngestError reports a file that could not be read.
type IngestError struct {
	FileName string
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("read %s: %v", e.FileName, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Batch is the outcome of ingesting one file selection.
type Batch struct {
	// Previews are in input order; Previews[i].Source is the accepted handle.
	Previews []Preview
	Oversize []string
	Failures []*IngestError
}

// Message aggregates the rejections of the batch into one line for the
// images field. It is empty when every file was accepted.
func (b Batch) Message() string {
	var parts []string
	if len(b.Oversize) > 0 {
		parts = append(parts, fmt.Sprintf("Some files exceed the 10 MiB size limit and were skipped: %s",
			strings.Join(b.Oversize, ", ")))
	}
	if len(b.Failures) > 0 {
		names := make([]string, len(b.Failures))
		for i, f := range b.Failures {
			names[i] = f.FileName
		}
		parts = append(parts, fmt.Sprintf("Some files could not be read: %s", strings.Join(names, ", ")))
	}
	return strings.Join(parts, "; ")
}

type ingestResult struct {
	preview  *Preview
	oversize bool
	err      error
}

// Ingest reads every file of the batch concurrently and converts it into a
// preview with inline base64 content. Files above MaxFileSize are rejected
// individually; a failing read rejects only that file.
func Ingest(ctx context.Context, files []*FileHandle) Batch {
	if len(files) == 0 {
		return Batch{}
	}

	results := make([]ingestResult, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		if f.Size > MaxFileSize {
			results[i] = ingestResult{oversize: true}
			continue
		}

		wg.Add(1)
		go func(i int, f *FileHandle) {
			defer wg.Done()
			results[i] = readFile(ctx, f)
		}(i, f)
	}
	wg.Wait()

	var batch Batch
	for i, r := range results {
		switch {
		case r.oversize:
			batch.Oversize = append(batch.Oversize, files[i].Name)
		case r.err != nil:
			batch.Failures = append(batch.Failures, &IngestError{FileName: files[i].Name, Err: r.err})
		default:
			batch.Previews = append(batch.Previews, *r.preview)
		}
	}
	return batch
}

func readFile(ctx context.Context, f *FileHandle) (res ingestResult) {
	defer func() {
		if p := recover(); p != nil {
			res = ingestResult{err: fmt.Errorf("panic: %v", p)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return ingestResult{err: err}
	}
	if f.Open == nil {
		return ingestResult{err: fmt.Errorf("file has no content")}
	}

	rc, err := f.Open()
	if err != nil {
		return ingestResult{err: err}
	}
	defer rc.Close()

	// The declared size can lie; never buffer more than the ceiling.
	data, err := io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
	if err != nil {
		return ingestResult{err: err}
	}
	if len(data) > MaxFileSize {
		return ingestResult{oversize: true}
	}

	size := f.Size
	if size <= 0 {
		size = int64(len(data))
	}

	return ingestResult{preview: &Preview{
		FileName: f.Name,
		FileSize: FormatFileSize(size),
		Content:  DataURI(data),
		Source:   f,
	}}
}

// DataURI encodes data as an inline data: URI.
func DataURI(data []byte) string {
	mime := strings.ReplaceAll(http.DetectContentType(data), " ", "")
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
