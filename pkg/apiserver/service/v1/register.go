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

package v1

import (
	"fmt"
	"net/http"

	"purchasekit/internal/coordinator"
	"purchasekit/internal/queue"
	"purchasekit/internal/statestore"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
)

const (
	APIRootPath    = "/purchasekit"
	Version        = "v1"
	ParamProductID = "id"
)

var (
	ModuleTags = []string{"purchasekit"}
)

func newWebService() *restful.WebService {
	webservice := restful.WebService{}

	webservice.Path(fmt.Sprintf("%s/%s", APIRootPath, Version)).
		Produces(restful.MIME_JSON)

	return &webservice
}

func AddToContainer(c *restful.Container, coord *coordinator.Coordinator, q queue.PaymentQueue, store *statestore.Store) error {
	ws := newWebService()
	handler := newHandler(coord, q, store)

	ws.Route(ws.POST("/products/resolve").
		To(handler.resolve).
		Reads(ResolveRequest{}).
		Doc("start catalog resolution for a set of product ids").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "resolution started", &Response{}))

	ws.Route(ws.GET("/products").
		To(handler.listProducts).
		Doc("list the resolved product catalog").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "success to list resolved products", &Response{}))

	ws.Route(ws.GET("/products/{"+ParamProductID+"}").
		To(handler.product).
		Doc("get a resolved product by id").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Param(ws.PathParameter(ParamProductID, "the id of a product")).
		Returns(http.StatusOK, "success to get the product", &Response{}))

	ws.Route(ws.POST("/purchases").
		To(handler.purchase).
		Reads(PurchaseRequest{}).
		Doc("buy a product and wait for the terminal result").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "purchase completed", &Response{}))

	ws.Route(ws.POST("/purchases/restore").
		To(handler.restore).
		Doc("start restoration of completed purchases").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "restoration started", &Response{}))

	ws.Route(ws.GET("/purchases/pending").
		To(handler.pending).
		Doc("count purchase attempts waiting for a terminal event").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "success to count pending purchases", &Response{}))

	ws.Route(ws.GET("/store-payments/cached").
		To(handler.cachedStorePayment).
		Doc("get the cached store-initiated payment").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "success to get the cached store payment", &Response{}))

	ws.Route(ws.POST("/store-payments/handle").
		To(handler.handleStorePayment).
		Doc("submit the cached store-initiated payment and wait for the result").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "store payment completed", &Response{}))

	ws.Route(ws.POST("/store-payments/clear").
		To(handler.clearStorePayment).
		Doc("discard the cached store-initiated payment").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "cached store payment discarded", &Response{}))

	ws.Route(ws.GET("/status").
		To(handler.status).
		Doc("report payment availability and state store health").
		Metadata(restfulspec.KeyOpenAPITags, ModuleTags).
		Returns(http.StatusOK, "success to get the status", &Response{}))

	c.Add(ws)

	return nil
}
