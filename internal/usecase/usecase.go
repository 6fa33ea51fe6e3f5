package usecase

import "context"

type IngestUC interface {
	Process(ctx context.Context, req *IngestReq) *IngestRes
}

type SaleUC interface {
	Attribute(ctx context.Context, req *AttributeReq) (*AttributeRes, error)
	Delete(ctx context.Context, req *DeleteSaleReq) error
	List(ctx context.Context, filter SaleFilter) ([]SaleInfo, error)
}

type ImportUC interface {
	Import(ctx context.Context, req *ImportReq) (*ImportRes, error)
}

type DedupeUC interface {
	Dedupe(ctx context.Context, req *DedupeReq) (*DedupeRes, error)
}

type CheckoutUC interface {
	Checkout(ctx context.Context, req *CheckoutReq) (*CheckoutRes, error)
	ConfirmPayment(ctx context.Context, req *ConfirmPaymentReq) error
}
