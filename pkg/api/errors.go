// Copyright 2022 bytetrade
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"net/http"
	"runtime"

	"purchasekit/internal/types"
	"purchasekit/pkg/utils"

	"github.com/emicklei/go-restful/v3"
	"github.com/golang/glog"
)

type ErrorType = string

const (
	ErrorInternalServerError ErrorType = "internal_server_error"
	ErrorBadRequest          ErrorType = "bad_request"
	ErrorUnknown             ErrorType = "unknown_error"
)

const (
	OK                  = 200
	InternalServerError = 500

	Success = "success"
)

func HandleInternalError(response *restful.Response, err error) {
	Handle(http.StatusInternalServerError, response, err)
}

func HandleBadRequest(response *restful.Response, err error) {
	Handle(http.StatusBadRequest, response, err)
}

// HandleError picks the status code from the purchase error kind when the
// error carries one, and falls back to 400 otherwise.
func HandleError(response *restful.Response, err error) {
	var pe *types.PurchaseError
	if errors.As(err, &pe) {
		Handle(statusForKind(pe.Kind), response, pe)
		return
	}

	var statusCode int
	switch t := err.(type) {
	case restful.ServiceError:
		statusCode = t.Code
	default:
		statusCode = http.StatusBadRequest
	}
	Handle(statusCode, response, err)
}

func statusForKind(kind types.ErrorKind) int {
	switch kind {
	case types.ErrProductNotFound:
		return http.StatusNotFound
	case types.ErrPaymentsUnavailable:
		return http.StatusServiceUnavailable
	case types.ErrCatalogRequestFailed, types.ErrRestorationFailed:
		return http.StatusBadGateway
	case types.ErrPaymentCancelledByUser, types.ErrPaymentInvalid,
		types.ErrClientInvalid, types.ErrPaymentNotAllowed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func Handle(statusCode int, resp *restful.Response, err error) {
	_, fn, line, _ := runtime.Caller(2)
	glog.Errorf("%s:%d %v", fn, line, err)

	var errType ErrorType

	var pe *types.PurchaseError
	if errors.As(err, &pe) {
		_ = resp.WriteHeaderAndEntity(statusCode, Error{
			Code:             statusCode,
			Msg:              pe.Error(),
			ErrorType:        string(pe.Kind),
			ErrorDescription: pe.Description,
		})
		return
	}

	var t Error
	if errors.As(err, &t) {
		_ = resp.WriteHeaderAndEntity(statusCode, t)
		return
	}

	switch statusCode {
	case http.StatusBadRequest:
		errType = ErrorBadRequest
	case http.StatusInternalServerError:
		errType = ErrorInternalServerError
	default:
		errType = ErrorUnknown
	}
	_ = resp.WriteHeaderAndEntity(statusCode, Error{
		Code:             statusCode,
		Msg:              err.Error(),
		ErrorType:        errType,
		ErrorDescription: err.Error(),
	})
}

type Error struct {
	Code             int    `json:"code"`
	Msg              string `json:"message"`
	ErrorType        string `json:"error_type,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func (e Error) Error() string {
	return utils.PrettyJSON(e)
}

func NewError(t string, errs ...string) Error {
	var desc string
	if len(errs) > 0 {
		desc = errs[0]
	}
	return Error{ErrorType: t, ErrorDescription: desc}
}
