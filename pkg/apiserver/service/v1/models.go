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
	"purchasekit/internal/coordinator"
	"purchasekit/internal/types"
)

type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"message"`
	Data any    `json:"data,omitempty"`
}

func NewResponse(code int, msg string, data any) *Response {
	return &Response{
		Code: code,
		Msg:  msg,
		Data: data,
	}
}

type ResolveRequest struct {
	ProductIDs []string `json:"product_ids"`
}

type PurchaseRequest struct {
	ProductID string `json:"product_id"`
	Kind      string `json:"kind,omitempty"`
}

type ProductListResult struct {
	Products []types.ProductDescriptor `json:"products"`
	Total    int                       `json:"total"`
}

type PendingResult struct {
	Pending int `json:"pending"`
}

type StorePaymentResult struct {
	Cached  *types.PendingStorePayment `json:"cached,omitempty"`
	Present bool                       `json:"present"`
}

type StatusResult struct {
	PaymentsAvailable bool   `json:"payments_available"`
	StateStore        string `json:"state_store"`
	PendingPurchases  int    `json:"pending_purchases"`
}

type PurchaseResponse struct {
	Result coordinator.PurchaseResult `json:"result"`

	// ReceiptMissing marks a purchase that went through but whose receipt
	// could not be fetched.
	ReceiptMissing bool `json:"receipt_missing,omitempty"`
}
