package cbhttp

import lhttp "github.com/sitecraft/AlgoOrchestration/pkg/http"

type Client interface {
	Do(r *Request, m ...MiddlewareFunc) (*Response, *lhttp.HttpError)
}
