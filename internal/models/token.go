package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TableAuthWindow is how long the server accepts a table token.
const TableAuthWindow = 24 * time.Hour

// TableAuth derives the X-Table-Auth header value for table-scoped
// requests. It is a lightweight device hint, not an authentication
// mechanism: base64("table:<n>:time:<unix-ms>").
func TableAuth(tableNumber int, now time.Time) string {
	raw := fmt.Sprintf("table:%d:time:%d", tableNumber, now.UnixMilli())
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// ParseTableAuth decodes a table token back into its table number and
// issue time. It mirrors the server-side validation rules.
func ParseTableAuth(token string) (tableNumber int, issuedAt time.Time, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid token encoding: %w", err)
	}

	parts := strings.Split(string(raw), ":")
	if len(parts) != 4 || parts[0] != "table" || parts[2] != "time" {
		return 0, time.Time{}, fmt.Errorf("invalid token format")
	}

	tableNumber, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid table number in token: %w", err)
	}

	ms, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid timestamp in token: %w", err)
	}

	return tableNumber, time.UnixMilli(ms), nil
}
