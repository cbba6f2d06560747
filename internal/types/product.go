package types

// ProductKind classifies a product identifier. It is informational metadata
// only; lookup and identity always use the ID string.
type ProductKind string

const (
	KindConsumable               ProductKind = "consumable"
	KindNonConsumable            ProductKind = "non_consumable"
	KindAutoRenewingSubscription ProductKind = "auto_renewing_subscription"
	KindNonRenewingSubscription  ProductKind = "non_renewing_subscription"
)

// ProductIdentifier is the application-supplied handle for a purchasable
// product. Created by the application and never mutated.
type ProductIdentifier struct {
	Kind ProductKind `json:"kind"`
	ID   string      `json:"id"`
}

// Consumable builds a consumable product identifier.
func Consumable(id string) ProductIdentifier {
	return ProductIdentifier{Kind: KindConsumable, ID: id}
}

// NonConsumable builds a non-consumable product identifier.
func NonConsumable(id string) ProductIdentifier {
	return ProductIdentifier{Kind: KindNonConsumable, ID: id}
}

// AutoRenewing builds an auto-renewing subscription identifier.
func AutoRenewing(id string) ProductIdentifier {
	return ProductIdentifier{Kind: KindAutoRenewingSubscription, ID: id}
}

// NonRenewing builds a non-renewing subscription identifier.
func NonRenewing(id string) ProductIdentifier {
	return ProductIdentifier{Kind: KindNonRenewingSubscription, ID: id}
}

// ProductDescriptor is the catalog's description of a purchasable product.
// Opaque beyond identity; the Raw field keeps whatever extra fields the
// catalog returned.
type ProductDescriptor struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Price    string                 `json:"price"`
	Currency string                 `json:"currency,omitempty"`
	Raw      map[string]interface{} `json:"raw,omitempty"`
}

// ResolveResult is the outcome of one catalog resolution request.
type ResolveResult struct {
	Resolved   []ProductDescriptor `json:"resolved"`
	Unresolved []string            `json:"unresolved,omitempty"`
}
