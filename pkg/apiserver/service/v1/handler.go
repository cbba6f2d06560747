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
	"errors"

	"purchasekit/internal/coordinator"
	"purchasekit/internal/queue"
	"purchasekit/internal/statestore"
	"purchasekit/internal/types"
	"purchasekit/pkg/api"

	"github.com/emicklei/go-restful/v3"
	"github.com/golang/glog"
)

type Handler struct {
	coordinator *coordinator.Coordinator
	queue       queue.PaymentQueue
	store       *statestore.Store
}

func newHandler(coord *coordinator.Coordinator, q queue.PaymentQueue, store *statestore.Store) *Handler {
	return &Handler{
		coordinator: coord,
		queue:       q,
		store:       store,
	}
}

func (h *Handler) resolve(req *restful.Request, resp *restful.Response) {
	var request ResolveRequest
	if err := req.ReadEntity(&request); err != nil {
		api.HandleBadRequest(resp, err)
		return
	}
	if len(request.ProductIDs) == 0 {
		api.HandleBadRequest(resp, errors.New("product_ids must not be empty"))
		return
	}

	if err := h.coordinator.ResolveProducts(req.Request.Context(), request.ProductIDs); err != nil {
		api.HandleError(resp, err)
		return
	}

	// Resolution completes asynchronously; the catalog shows up under
	// /products once the platform answered.
	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, nil))
}

func (h *Handler) listProducts(req *restful.Request, resp *restful.Response) {
	products := h.coordinator.Products()
	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, &ProductListResult{
		Products: products,
		Total:    len(products),
	}))
}

func (h *Handler) product(req *restful.Request, resp *restful.Response) {
	id := req.PathParameter(ParamProductID)
	desc, ok := h.coordinator.Product(id)
	if !ok {
		api.HandleError(resp, types.ProductNotFoundError(id))
		return
	}

	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, desc))
}

func (h *Handler) purchase(req *restful.Request, resp *restful.Response) {
	var request PurchaseRequest
	if err := req.ReadEntity(&request); err != nil {
		api.HandleBadRequest(resp, err)
		return
	}
	if request.ProductID == "" {
		api.HandleBadRequest(resp, errors.New("product_id must not be empty"))
		return
	}

	outcome := h.coordinator.Purchase(productIdentifier(request))
	h.waitForOutcome(req, resp, outcome)
}

func (h *Handler) restore(req *restful.Request, resp *restful.Response) {
	if err := h.coordinator.RestorePurchases(); err != nil {
		api.HandleError(resp, err)
		return
	}

	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, nil))
}

func (h *Handler) pending(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, &PendingResult{
		Pending: h.coordinator.PendingPurchases(),
	}))
}

func (h *Handler) cachedStorePayment(req *restful.Request, resp *restful.Response) {
	cached := h.coordinator.CachedStorePayment()
	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, &StorePaymentResult{
		Cached:  cached,
		Present: cached != nil,
	}))
}

func (h *Handler) handleStorePayment(req *restful.Request, resp *restful.Response) {
	outcome := h.coordinator.HandleCachedPayments()
	if outcome == nil {
		api.HandleBadRequest(resp, errors.New("no cached store payment"))
		return
	}

	h.waitForOutcome(req, resp, outcome)
}

func (h *Handler) clearStorePayment(req *restful.Request, resp *restful.Response) {
	h.coordinator.ClearCachedPayments()
	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, nil))
}

func (h *Handler) status(req *restful.Request, resp *restful.Response) {
	result := &StatusResult{
		PaymentsAvailable: h.queue.CanSubmitPayments(),
		PendingPurchases:  h.coordinator.PendingPurchases(),
		StateStore:        "disabled",
	}
	if h.store != nil {
		result.StateStore = "ok"
		if err := h.store.HealthCheck(); err != nil {
			result.StateStore = err.Error()
		}
	}

	_ = resp.WriteEntity(NewResponse(api.OK, api.Success, result))
}

// waitForOutcome blocks until the purchase attempt resolves or the client
// goes away. A missing receipt on an otherwise finished transaction is
// reported as success with the receipt_missing flag set.
func (h *Handler) waitForOutcome(req *restful.Request, resp *restful.Response, outcome *coordinator.Outcome) {
	select {
	case result := <-outcome.Done():
		if result.Err != nil && result.Err.Kind != types.ErrReceiptUnavailable {
			api.HandleError(resp, result.Err)
			return
		}
		_ = resp.WriteEntity(NewResponse(api.OK, api.Success, &PurchaseResponse{
			Result:         result,
			ReceiptMissing: result.Err != nil,
		}))
	case <-req.Request.Context().Done():
		glog.Warningf("client gave up waiting for product %s", outcome.ProductID())
	}
}

func productIdentifier(request PurchaseRequest) types.ProductIdentifier {
	switch types.ProductKind(request.Kind) {
	case types.KindConsumable:
		return types.Consumable(request.ProductID)
	case types.KindAutoRenewingSubscription:
		return types.AutoRenewing(request.ProductID)
	case types.KindNonRenewingSubscription:
		return types.NonRenewing(request.ProductID)
	case types.KindNonConsumable:
		return types.NonConsumable(request.ProductID)
	default:
		if request.Kind != "" {
			glog.Warningf("unknown product kind %q for %s", request.Kind, request.ProductID)
		}
		return types.NonConsumable(request.ProductID)
	}
}
