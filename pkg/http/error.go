package lhttp

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type HttpError struct {
	Code    int
	Message string
	Err     error
}

func FromError(err error) *HttpError {
	if err == nil {
		return nil
	}

	// Own type
	if herr, ok := err.(*HttpError); ok {
		return herr
	}

	return &HttpError{Err: err}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("got code %d and message \"%s\"", e.Code, e.Message)
}

func (e *HttpError) Clone() *HttpError {
	return &HttpError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (e *HttpError) WriteResponse(w http.ResponseWriter) {
	if e.Err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(e.Code)
	if e.Message != "" {
		if err := json.NewEncoder(w).Encode(errorBody{Error: e.Message}); err != nil {
			panic(err) // let the recovery middleware deal with this
		}
	}
}

func (e *HttpError) WithPayload(payload string) *HttpError {
	e.Message = payload
	return e
}

func (e *HttpError) SetPayload(payload string) {
	e.Message = payload
}

func NewNotFound(message string) *HttpError {
	return &HttpError{Code: http.StatusNotFound, Message: message}
}

func NewBadGateway(message string) *HttpError {
	return &HttpError{Code: http.StatusBadGateway, Message: message}
}

func NewConflict(message string) *HttpError {
	return &HttpError{Code: http.StatusConflict, Message: message}
}

func NewBadRequest(message string) *HttpError {
	return &HttpError{Code: http.StatusBadRequest, Message: message}
}

func NewInternalError(message string) *HttpError {
	return &HttpError{Code: http.StatusInternalServerError, Message: message}
}

func NewForbidden() *HttpError {
	return &HttpError{Code: http.StatusForbidden, Message: "Forbidden"}
}
