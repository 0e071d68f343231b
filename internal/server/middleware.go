package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nidhal-dev/authfront/internal/router"
)

const locationKey = "location"

func setLocation(c *gin.Context, loc router.Location) {
	c.Set(locationKey, loc)
}

// GetLocation returns the location the guard let the request through to
func GetLocation(c *gin.Context) (router.Location, bool) {
	v, exists := c.Get(locationKey)
	if !exists {
		return router.Location{}, false
	}
	loc, ok := v.(router.Location)
	return loc, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// GuardMiddleware navigates the router to the named route. When a guard
// redirects, the browser is sent to where the navigation ended instead.
func GuardMiddleware(r *router.Router, name string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		to := router.Location{Name: name}
		if q := c.Request.URL.Query(); len(q) > 0 {
			to.Query = q
		}

		loc, err := r.Push(c.Request.Context(), to)
		if err != nil {
			respondWithError(c, log, http.StatusInternalServerError, err, "Navigation failed")
			return
		}

		if loc.Name != name {
			log.Debug().Str("requested", name).Str("redirect", loc.String()).Msg("Guard redirected")
			status := http.StatusFound
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				status = http.StatusSeeOther
			}
			c.Redirect(status, loc.String())
			c.Abort()
			return
		}

		setLocation(c, loc)
		c.Next()
	}
}
