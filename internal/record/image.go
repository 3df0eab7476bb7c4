package record

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// MaxPhotoBytes is the largest photo accepted as an inline data URI.
const MaxPhotoBytes = 2 * 1024 * 1024

var driveFileID = regexp.MustCompile(`(?:/d/|id=)([\w-]+)`)

// DirectImageURL rewrites Google Drive share links into a link that can be
// embedded directly in an <img>. Data URIs and other URLs are returned as is.
func DirectImageURL(url string) string {
	if url == "" || strings.HasPrefix(url, "data:") {
		return url
	}
	if !strings.Contains(url, "drive.google.com") && !strings.Contains(url, "googleusercontent.com") {
		return url
	}
	m := driveFileID.FindStringSubmatch(url)
	if m == nil {
		return url
	}
	return "https://lh3.googleusercontent.com/d/" + m[1]
}

// dataURISize returns the decoded size of a base64 data URI, or -1 when
// the value is not one.
func dataURISize(v string) int {
	if !strings.HasPrefix(v, "data:") {
		return -1
	}
	i := strings.Index(v, ";base64,")
	if i < 0 {
		return -1
	}
	payload := v[i+len(";base64,"):]
	return base64.StdEncoding.DecodedLen(len(payload)) - strings.Count(payload[max(0, len(payload)-2):], "=")
}

// PhotoDataURI encodes raw image bytes as a data URI for upload.
func PhotoDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
