package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// decodeDOCX reads word/document.xml out of the ZIP container and walks its
// paragraph runs. Container or XML defects degrade to warnings.
func decodeDOCX(data []byte) (string, []string) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", []string{fmt.Sprintf("could not open DOCX container: %v", err)}
	}

	var docFile *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", []string{"word/document.xml not found in DOCX container"}
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", []string{fmt.Sprintf("could not open word/document.xml: %v", err)}
	}
	defer rc.Close()

	var (
		builder     strings.Builder
		warnings    []string
		paragraph   strings.Builder
		inParagraph bool
	)
	flush := func() {
		text := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if text == "" {
			return
		}
		if builder.Len() > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(text)
	}

	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				warnings = append(warnings, fmt.Sprintf("document.xml truncated: %v", err))
			}
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" {
				inParagraph = true
				paragraph.Reset()
			}
		case xml.CharData:
			if inParagraph {
				paragraph.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				flush()
			}
		}
	}

	return builder.String(), warnings
}
