package reader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/poiesic/docrag/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	wordNamespace        = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	dublinCoreNamespace  = "http://purl.org/dc/elements/1.1/"
	docxBodyPart         = "word/document.xml"
	docxCorePropertyPart = "docProps/core.xml"
)

// Docx loads the body text of an Office Open XML word document as a single document.
// Paragraphs become lines. The title from the core properties, if any, is
// set as "title" metadata.
type Docx struct {
	r    io.ReaderAt
	size int64
}

var _ documentloaders.Loader = Docx{}

// NewDocx creates a loader for the docx archive in r.
func NewDocx(r io.ReaderAt, size int64) Docx {
	return Docx{r: r, size: size}
}

func (d Docx) Load(_ context.Context) ([]schema.Document, error) {
	zr, err := zip.NewReader(d.r, d.size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	body, err := readPart(zr, docxBodyPart)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedDocument, docxBodyPart)
	}
	defer body.Close()

	text, err := paragraphText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	metadata := map[string]any{}
	if props, err := readPart(zr, docxCorePropertyPart); err == nil && props != nil {
		defer props.Close()
		if title, err := coreTitle(props); err == nil && title != "" {
			metadata[core.MetadataTitle] = title
		}
	}

	return []schema.Document{{
		PageContent: text,
		Metadata:    metadata,
	}}, nil
}

func (d Docx) LoadAndSplit(ctx context.Context, splitter textsplitter.TextSplitter) ([]schema.Document, error) {
	docs, err := d.Load(ctx)
	if err != nil {
		return nil, err
	}
	return textsplitter.SplitDocuments(splitter, docs)
}

// readPart opens a named archive member. A missing member gives nil, nil.
func readPart(zr *zip.Reader, name string) (io.ReadCloser, error) {
	f, err := zr.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return f, nil
}

func paragraphText(r io.Reader) (string, error) {
	var (
		sb        strings.Builder
		inText    bool
		paragraph bool
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			case "p":
				if paragraph {
					sb.WriteByte('\n')
				}
				paragraph = true
			}
		case xml.EndElement:
			if t.Name.Space == wordNamespace && t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}

func coreTitle(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", nil
			}
			return "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Space != dublinCoreNamespace || start.Name.Local != "title" {
			continue
		}
		var title string
		if err := dec.DecodeElement(&title, &start); err != nil {
			return "", err
		}
		return strings.TrimSpace(title), nil
	}
}
