package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RequestID tags every request and response with an X-Request-Id, keeping
// one supplied by the client.
func RequestID() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	})
}

// bodyDecoders maps a Content-Encoding token to a reader that undoes it.
var bodyDecoders = map[string]func(io.Reader) (io.ReadCloser, error){
	"gzip":   openGzip,
	"x-gzip": openGzip,
}

func openGzip(r io.Reader) (io.ReadCloser, error) { return gzip.NewReader(r) }

// DecodeRequestBody serves handlers a plain body for requests sent with a
// known Content-Encoding. A body that does not decode is answered with 400.
func DecodeRequestBody() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := decodeRequestEncoding(c.Request()); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			return next(c)
		}
	}
}

func decodeRequestEncoding(req *http.Request) error {
	open := decoderFor(req.Header.Get(echo.HeaderContentEncoding))
	if open == nil || req.Body == nil {
		return nil
	}
	dec, err := open(req.Body)
	if err != nil {
		_ = req.Body.Close()
		return errors.New("invalid compressed body")
	}
	req.Body = decodedBody{dec: dec, raw: req.Body}
	// the decoded length is unknown until the body is drained
	req.ContentLength = -1
	req.Header.Del(echo.HeaderContentLength)
	req.Header.Del(echo.HeaderContentEncoding)
	return nil
}

func decoderFor(header string) func(io.Reader) (io.ReadCloser, error) {
	for header != "" {
		var token string
		token, header, _ = strings.Cut(header, ",")
		if open, ok := bodyDecoders[strings.ToLower(strings.TrimSpace(token))]; ok {
			return open
		}
	}
	return nil
}

// decodedBody reads through dec and closes both dec and the wire body.
type decodedBody struct {
	dec io.ReadCloser
	raw io.ReadCloser
}

func (b decodedBody) Read(p []byte) (int, error) { return b.dec.Read(p) }

func (b decodedBody) Close() error {
	return errors.Join(b.dec.Close(), b.raw.Close())
}
