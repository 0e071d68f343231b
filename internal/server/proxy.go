package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nidhal-dev/authfront/internal/client"
)

// maxProxyBody caps a proxied request body; it is buffered so the request
// can be replayed after a token refresh
const maxProxyBody = 10 << 20

// @Summary API proxy
// @Description Forwards the request to the API with the stored bearer token.
// @Description An expired access token is refreshed and the request retried once.
// @Tags api
// @Param path path string true "API path below the version prefix"
// @Success 200
// @Failure 303 "Session expired, redirected to login"
// @Failure 502 {object} map[string]interface{}
// @Router /api/{path} [get]
func (s *Server) proxy(c *gin.Context) {
	var body io.Reader
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody+1))
		if err != nil {
			respondWithError(c, s.logger, http.StatusBadRequest, err, "Failed to read request body")
			return
		}
		if len(data) > maxProxyBody {
			err := fmt.Errorf("request body exceeds %d bytes", maxProxyBody)
			respondWithError(c, s.logger, http.StatusRequestEntityTooLarge, err, "Request body too large")
			return
		}
		body = bytes.NewReader(data)
	}

	path := c.Param("path")
	if c.Request.URL.RawQuery != "" {
		path += "?" + c.Request.URL.RawQuery
	}

	// Parameters such as boundary and charset must reach the API intact
	resp, err := s.app.Client.Request(c.Request.Context(), c.Request.Method, path, body, c.GetHeader("Content-Type"))
	if err != nil {
		var apiErr *client.APIError
		switch {
		case errors.Is(err, client.ErrSessionExpired):
			s.logger.Warn().Str("path", path).Msg("Session expired during proxied request")
			c.Redirect(http.StatusSeeOther, s.app.Router.Current().String())
			c.Abort()
		case errors.As(err, &apiErr):
			contentType := apiErr.ContentType
			if contentType == "" {
				contentType = "text/plain; charset=utf-8"
			}
			c.Data(apiErr.StatusCode, contentType, []byte(apiErr.Body))
		default:
			respondWithError(c, s.logger, http.StatusBadGateway, err, "API request failed")
		}
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}
