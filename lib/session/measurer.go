package session

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const maxImageHeaderBytes = 1 << 20

var errUnsupportedImageSource = errors.New("unsupported image source")

// ImageMeasurer reads the pixel size of images from data URIs and http(s)
// URLs. Only the image header is decoded.
type ImageMeasurer struct {
	httpClient *http.Client
}

func NewImageMeasurer(httpClient *http.Client) *ImageMeasurer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ImageMeasurer{httpClient: httpClient}
}

func (im *ImageMeasurer) Measure(src string) (int, int, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		data, err := decodeDataURI(src)
		if err != nil {
			return 0, 0, err
		}
		return decodeSize(bytes.NewReader(data))
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		if _, err := url.ParseRequestURI(src); err != nil {
			return 0, 0, err
		}
		resp, err := im.httpClient.Get(src)
		if err != nil {
			return 0, 0, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return 0, 0, fmt.Errorf("fetching image: status %d", resp.StatusCode)
		}
		return decodeSize(io.LimitReader(resp.Body, maxImageHeaderBytes))
	}
	return 0, 0, errUnsupportedImageSource
}

func decodeSize(r io.Reader) (int, int, error) {
	config, _, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, err
	}
	return config.Width, config.Height, nil
}

func decodeDataURI(src string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errUnsupportedImageSource
	}
	if strings.HasSuffix(header, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(decoded), nil
}
