package middleware

import (
	"net/http"

	"github.com/hoyoclaw/claimd/internal/httputil"
)

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}
