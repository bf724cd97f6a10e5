// Package export renders a favorites collection for people and other tools, and reads
// collections back in.
//
// Render produces indented JSON, YAML, XML (built with etree) or an HTML table (formatted
// with gohtml). Parse accepts JSON, XML or YAML, detecting the format from the content.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/gabriel-vasile/mimetype"
	"github.com/tfkr-ae/darelteb/domain"
	"github.com/yosssi/gohtml"
	"gopkg.in/yaml.v3"
)

// Format is an export format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	XML  Format = "xml"
	HTML Format = "html"
)

var (
	// ErrUnknownFormat is returned for an unsupported export format.
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrUnreadable is returned by Parse when the input is not a favorites list.
	ErrUnreadable = errors.New("unreadable favorites document")
)

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{JSON, YAML, XML, HTML}
}

// ParseFormat maps a name such as "yml" or "JSON" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json", "":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	case "xml":
		return XML, nil
	case "html", "htm":
		return HTML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Render serializes favorites in the given format.
func Render(format Format, favorites []domain.FavoriteTest) ([]byte, error) {
	if favorites == nil {
		favorites = []domain.FavoriteTest{}
	}

	switch format {
	case JSON:
		output, err := json.MarshalIndent(favorites, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling JSON : %w", err)
		}
		return append(output, '\n'), nil
	case YAML:
		output, err := yaml.Marshal(favorites)
		if err != nil {
			return nil, fmt.Errorf("marshalling YAML : %w", err)
		}
		return output, nil
	case XML:
		return renderXML(favorites)
	case HTML:
		return renderHTML(favorites)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func renderXML(favorites []domain.FavoriteTest) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("favorites")
	for _, favorite := range favorites {
		test := root.CreateElement("test")
		test.CreateAttr("id", favorite.ID)
		test.CreateElement("name").SetText(favorite.Name)
		test.CreateElement("imageUrl").SetText(favorite.ImageURL)
		test.CreateElement("coins").SetText(strconv.FormatFloat(favorite.Coins, 'f', -1, 64))
		if favorite.Category != "" {
			test.CreateElement("category").SetText(favorite.Category)
		}
	}

	doc.Indent(2)
	var output bytes.Buffer
	if _, err := doc.WriteTo(&output); err != nil {
		return nil, fmt.Errorf("writing indented XML : %w", err)
	}
	return output.Bytes(), nil
}

var htmlTemplate = template.Must(template.New("favorites").Parse(
	`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Favorite tests</title></head><body>` +
		`<table><thead><tr><th>ID</th><th>Name</th><th>Category</th><th>Coins</th><th>Image</th></tr></thead><tbody>` +
		`{{range .}}<tr><td>{{.ID}}</td><td>{{.Name}}</td><td>{{.Category}}</td><td>{{.Coins}}</td><td><img src="{{.ImageURL}}" alt="{{.Name}}"></td></tr>{{end}}` +
		`</tbody></table></body></html>`))

func renderHTML(favorites []domain.FavoriteTest) ([]byte, error) {
	var output bytes.Buffer
	if err := htmlTemplate.Execute(&output, favorites); err != nil {
		return nil, fmt.Errorf("executing HTML template : %w", err)
	}
	return gohtml.FormatBytes(output.Bytes()), nil
}

// Parse reads a favorites list written as JSON, XML or YAML. Empty input is an empty list.
// Entries are returned as found; validation and de-duplication are left to the store.
func Parse(data []byte) ([]domain.FavoriteTest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []domain.FavoriteTest{}, nil
	}

	detected := mimetype.Detect(trimmed)
	switch {
	case detected.Is("application/json"):
		var favorites []domain.FavoriteTest
		if err := json.Unmarshal(trimmed, &favorites); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return nonNil(favorites), nil
	case detected.Is("text/xml") || bytes.HasPrefix(trimmed, []byte("<")):
		return parseXML(trimmed)
	default:
		var favorites []domain.FavoriteTest
		if err := yaml.Unmarshal(trimmed, &favorites); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return nonNil(favorites), nil
	}
}

func parseXML(data []byte) ([]domain.FavoriteTest, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	root := doc.SelectElement("favorites")
	if root == nil {
		return nil, fmt.Errorf("%w: missing <favorites> root element", ErrUnreadable)
	}

	favorites := []domain.FavoriteTest{}
	for _, test := range root.SelectElements("test") {
		favorite := domain.FavoriteTest{
			ID:       test.SelectAttrValue("id", ""),
			Name:     childText(test, "name"),
			ImageURL: childText(test, "imageUrl"),
			Category: childText(test, "category"),
		}

		if coins := childText(test, "coins"); coins != "" {
			value, err := strconv.ParseFloat(coins, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: coins of %s : %w", ErrUnreadable, favorite.ID, err)
			}
			favorite.Coins = value
		}
		favorites = append(favorites, favorite)
	}
	return favorites, nil
}

func childText(element *etree.Element, tag string) string {
	child := element.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func nonNil(favorites []domain.FavoriteTest) []domain.FavoriteTest {
	if favorites == nil {
		return []domain.FavoriteTest{}
	}
	return favorites
}
