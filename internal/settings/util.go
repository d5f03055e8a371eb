package settings

import (
	"net/url"
	"strings"
)

func lower(s string) string {
	return strings.ToLower(s)
}

func pathEscape(s string) string {
	return url.PathEscape(s)
}
