package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// DecodeProductCursor parses an opaque list cursor back into the product id
// the previous page ended on. An empty cursor means the first page.
func DecodeProductCursor(cursorStr string) (int64, error) {
	if cursorStr == "" {
		return 0, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursorStr)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(string(decoded), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor format")
	}
	if id < 0 {
		return 0, fmt.Errorf("invalid cursor format")
	}

	return id, nil
}

// EncodeProductCursor builds the opaque cursor for the next page.
func EncodeProductCursor(lastID int64) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.FormatInt(lastID, 10)))
}
