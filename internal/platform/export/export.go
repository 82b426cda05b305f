// Package export serializes generated FHIR bundles for delivery: JSON or XML
// rendering, optional gzip, optional AES-256-GCM encryption for archives
// leaving the service boundary.
package export

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"github.com/exermed/exermed/internal/platform/fhir"
)

// Format selects the serialization of the bundle payload.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// Options configures an Exporter. A non-nil EncryptionKey must be 32 bytes.
type Options struct {
	Format        Format
	Gzip          bool
	EncryptionKey []byte
}

// Exporter writes bundles through the render -> gzip -> encrypt pipeline.
type Exporter struct {
	opts Options
	enc  *Encryptor
}

// New validates the options and builds an Exporter.
func New(opts Options) (*Exporter, error) {
	switch opts.Format {
	case FormatJSON, FormatXML:
	case "":
		opts.Format = FormatJSON
	default:
		return nil, fmt.Errorf("export: unsupported format %q", opts.Format)
	}

	e := &Exporter{opts: opts}
	if len(opts.EncryptionKey) > 0 {
		enc, err := NewEncryptor(opts.EncryptionKey)
		if err != nil {
			return nil, err
		}
		e.enc = enc
	}
	return e, nil
}

// FileName derives the output file name for a base name, reflecting each
// applied pipeline stage.
func (e *Exporter) FileName(base string) string {
	name := base + "." + string(e.opts.Format)
	if e.opts.Gzip {
		name += ".gz"
	}
	if e.enc != nil {
		name += ".enc"
	}
	return name
}

// Export renders the bundle and writes the final payload to w.
func (e *Exporter) Export(w io.Writer, b *fhir.Bundle) error {
	payload, err := e.render(b)
	if err != nil {
		return err
	}
	if e.opts.Gzip {
		payload, err = gzipBytes(payload)
		if err != nil {
			return err
		}
	}
	if e.enc != nil {
		payload, err = e.enc.EncryptBytes(payload)
		if err != nil {
			return err
		}
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("export: write payload: %w", err)
	}
	return nil
}

func (e *Exporter) render(b *fhir.Bundle) ([]byte, error) {
	switch e.opts.Format {
	case FormatXML:
		return marshalBundleXML(b)
	default:
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("export: marshal bundle: %w", err)
		}
		return data, nil
	}
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("export: gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
