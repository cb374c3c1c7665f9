package cbhttp

import (
	lhttp "github.com/sitecraft/AlgoOrchestration/pkg/http"
)

type RunnerFunc func(r *Request) (*Response, *lhttp.HttpError)
type MiddlewareFunc func(next RunnerFunc) RunnerFunc
