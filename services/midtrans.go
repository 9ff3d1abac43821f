package services

import (
	stdctx "context"
	"os"

	"github.com/Calstins/teensha/engine"
	"github.com/alphabatem/common/context"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	log "github.com/sirupsen/logrus"
)

// MidtransService opens Snap checkouts for badge purchases and polls transaction
// status when a teen confirms a purchase.
type MidtransService struct {
	context.DefaultService

	serverKey   string
	environment midtrans.EnvironmentType

	snapClient snap.Client
	coreClient coreapi.Client
}

const MIDTRANS_SVC = "midtrans_svc"

var _ engine.CheckoutGateway = (*MidtransService)(nil)

func (svc MidtransService) Id() string {
	return MIDTRANS_SVC
}

func (svc *MidtransService) Configure(ctx *context.Context) error {
	svc.serverKey = os.Getenv("MIDTRANS_SERVER_KEY")
	svc.environment = midtrans.Sandbox
	if os.Getenv("MIDTRANS_PRODUCTION") == "true" {
		svc.environment = midtrans.Production
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *MidtransService) Start() error {
	if svc.serverKey == "" {
		log.Warn("MIDTRANS_SERVER_KEY not set, badge checkouts will fail")
	}
	svc.snapClient.New(svc.serverKey, svc.environment)
	svc.coreClient.New(svc.serverKey, svc.environment)
	return nil
}

func (svc *MidtransService) CreateCheckout(ctx stdctx.Context, req engine.CheckoutRequest) (*engine.CheckoutSession, error) {
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.TeenName,
			Email: req.TeenEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       req.ItemID,
				Price:    req.Amount,
				Qty:      1,
				Name:     truncate(req.ItemName, 50),
				Category: "Badge",
			},
		},
		CustomField1: req.TeenID,
	}

	resp, mErr := svc.snapClient.CreateTransaction(snapReq)
	// midtrans returns a typed *Error; a nil pointer must not become a non-nil error.
	if mErr != nil {
		log.WithError(mErr).WithField("reference", req.Reference).Error("Midtrans checkout failed")
		return nil, mErr
	}
	return &engine.CheckoutSession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func (svc *MidtransService) FetchStatus(ctx stdctx.Context, reference string) (*engine.PaymentResult, error) {
	resp, mErr := svc.coreClient.CheckTransaction(reference)
	if mErr != nil {
		log.WithError(mErr).WithField("reference", reference).Warn("Midtrans status check failed")
		return nil, mErr
	}

	return &engine.PaymentResult{
		Reference:            resp.OrderID,
		Status:               engine.MapGatewayStatus(resp.TransactionStatus, resp.FraudStatus),
		GatewayTransactionID: resp.TransactionID,
		Method:               resp.PaymentType,
		Amount:               engine.ParseGrossAmount(resp.GrossAmount),
	}, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
