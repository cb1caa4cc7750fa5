package request

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// RouteStringParam returns an URL route parameter as string.
func RouteStringParam(r *http.Request, param string) string {
	vars := mux.Vars(r)
	return vars[param]
}

// QueryBoolParam returns a query-string parameter as bool.
func QueryBoolParam(r *http.Request, param string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(param))
	if err != nil {
		return false
	}
	return value
}
