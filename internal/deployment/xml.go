package deployment

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	sessionKeyField    = "sessionKey"
	whitelistSizeField = "whitelist-size"
)

var errFieldNotFound = errors.New("field not found")

// findField returns the text of the first element that is either named field
// or is an Atom <s:key name="field"> entry, as the REST API renders entity
// properties.
func findField(body []byte, field string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false

	sawElement := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing XML: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawElement = true

		if !matchesField(start, field) {
			continue
		}

		var text struct {
			Value string `xml:",chardata"`
		}
		if err := dec.DecodeElement(&text, &start); err != nil {
			return "", fmt.Errorf("parsing %s: %w", field, err)
		}
		return strings.TrimSpace(text.Value), nil
	}

	if !sawElement {
		return "", errors.New("response is not an XML document")
	}
	return "", fmt.Errorf("%s: %w", field, errFieldNotFound)
}

func matchesField(start xml.StartElement, field string) bool {
	if start.Name.Local == field {
		return true
	}
	if start.Name.Local != "key" {
		return false
	}
	for _, attr := range start.Attr {
		if attr.Name.Local == "name" && attr.Value == field {
			return true
		}
	}
	return false
}

func parseSessionKey(body []byte) (string, error) {
	key, err := findField(body, sessionKeyField)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%s is empty", sessionKeyField)
	}
	return key, nil
}

func parseWhitelistSize(body []byte) (int, error) {
	raw, err := findField(body, whitelistSizeField)
	if err != nil {
		return 0, err
	}
	size, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not an integer", whitelistSizeField, raw)
	}
	if size < 0 {
		return 0, fmt.Errorf("%s %d is negative", whitelistSizeField, size)
	}
	return size, nil
}
