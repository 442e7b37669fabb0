package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	docxDefaultBody   = "word/document.xml"
	docxContentTypes  = "[Content_Types].xml"
	docxMainPartMedia = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
)

var (
	// <w:p> and <w:p w:rsidR="..."> but not <w:pPr> or <w:proofErr>.
	docxParagraph = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>(.*?)</w:p>`)
	docxText      = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	docxOverride  = regexp.MustCompile(`<Override\s[^>]*>`)
	docxPartName  = regexp.MustCompile(`PartName="([^"]+)"`)
)

// extractDOCX returns the document body one paragraph per line. The body part
// is located through [Content_Types].xml so renamed parts (document2.xml) work.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}
	bodyPath := docxDefaultBody
	if types, err := readZipEntry(zr, docxContentTypes); err == nil {
		if p := docxMainPart(string(types)); p != "" {
			bodyPath = p
		}
	}
	body, err := readZipEntry(zr, bodyPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	var lines []string
	for _, para := range docxParagraph.FindAllStringSubmatch(string(body), -1) {
		var line strings.Builder
		for _, run := range docxText.FindAllStringSubmatch(para[1], -1) {
			line.WriteString(run[1])
		}
		if text := strings.TrimSpace(unescapeXML(line.String())); text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// docxMainPart finds the main document part name regardless of attribute order.
func docxMainPart(types string) string {
	for _, override := range docxOverride.FindAllString(types, -1) {
		if !strings.Contains(override, `ContentType="`+docxMainPartMedia+`"`) {
			continue
		}
		if m := docxPartName.FindStringSubmatch(override); m != nil {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s not found", name)
}

var xmlEntities = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}
