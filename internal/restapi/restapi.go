// Package restapi exposes the orchestration engines over JSON HTTP. Each API
// maps its engine's sentinel errors onto HTTP status codes; everything else is
// an internal error.
package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/schema"
	lhttp "github.com/sitecraft/AlgoOrchestration/pkg/http"
	sbhttp "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http"
	sbhttpbase "github.com/sitecraft/AlgoOrchestration/pkg/serverbase/http/base"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.SetAliasTag("json")
	return d
}

func decodeQuery(request *sbhttpbase.Request, target interface{}) *lhttp.HttpError {
	if err := queryDecoder.Decode(target, request.Request.URL.Query()); err != nil {
		return lhttp.NewBadRequest(fmt.Sprintf("invalid query parameters: %s", err))
	}
	return nil
}

func decodeBody(request *sbhttpbase.Request, target interface{}) *lhttp.HttpError {
	if request.Request.Body == nil {
		return lhttp.NewBadRequest("body is required")
	}
	defer request.Request.Body.Close()
	if err := json.NewDecoder(request.Request.Body).Decode(target); err != nil {
		return lhttp.NewBadRequest(fmt.Sprintf("invalid body: %s", err))
	}
	return nil
}

func writeResult(request *sbhttpbase.Request, code int, result interface{}) {
	if err := sbhttp.WriteJson(request.Writer, code, result); err != nil {
		request.Writer.WriteHeader(http.StatusInternalServerError)
	}
}

func writeError(request *sbhttpbase.Request, err *lhttp.HttpError) {
	err.WriteResponse(request.Writer)
}
