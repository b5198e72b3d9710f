package extractor

import (
	"bytes"
	"fmt"

	"code.sajari.com/docconv"
)

// convertBytes runs docconv over an in-memory buffer.
func convertBytes(data []byte, contentType string) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), contentType, false)
	if err != nil {
		return "", fmt.Errorf("docconv: %w", err)
	}
	return res.Body, nil
}
