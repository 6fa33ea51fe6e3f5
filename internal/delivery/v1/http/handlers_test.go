package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/domain"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/ingest"
	"github.com/NouvelleRive/nouvelle-rive-sub001/internal/usecase"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/e"
	"github.com/NouvelleRive/nouvelle-rive-sub001/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngestUC struct {
	reqs []*usecase.IngestReq
	res  *usecase.IngestRes
}

func (f *fakeIngestUC) Process(_ context.Context, req *usecase.IngestReq) *usecase.IngestRes {
	f.reqs = append(f.reqs, req)
	if f.res != nil {
		return f.res
	}
	return &usecase.IngestRes{}
}

type fakeSaleUC struct {
	attributeReq *usecase.AttributeReq
	attributeRes *usecase.AttributeRes
	attributeErr error
	deleteReq    *usecase.DeleteSaleReq
	deleteErr    error
	filter       usecase.SaleFilter
	sales        []usecase.SaleInfo
}

func (f *fakeSaleUC) Attribute(_ context.Context, req *usecase.AttributeReq) (*usecase.AttributeRes, error) {
	f.attributeReq = req
	return f.attributeRes, f.attributeErr
}

func (f *fakeSaleUC) Delete(_ context.Context, req *usecase.DeleteSaleReq) error {
	f.deleteReq = req
	return f.deleteErr
}

func (f *fakeSaleUC) List(_ context.Context, filter usecase.SaleFilter) ([]usecase.SaleInfo, error) {
	f.filter = filter
	return f.sales, nil
}

type fakeImportUC struct {
	req *usecase.ImportReq
	res *usecase.ImportRes
	err error
}

func (f *fakeImportUC) Import(_ context.Context, req *usecase.ImportReq) (*usecase.ImportRes, error) {
	f.req = req
	return f.res, f.err
}

type fakeDedupeUC struct {
	req *usecase.DedupeReq
	res *usecase.DedupeRes
}

func (f *fakeDedupeUC) Dedupe(_ context.Context, req *usecase.DedupeReq) (*usecase.DedupeRes, error) {
	f.req = req
	res := *f.res
	res.DryRun = req.DryRun
	return &res, nil
}

type fakeCheckoutUC struct {
	checkoutReq *usecase.CheckoutReq
	checkoutRes *usecase.CheckoutRes
	checkoutErr error
	confirmReq  *usecase.ConfirmPaymentReq
	confirmErr  error
}

func (f *fakeCheckoutUC) Checkout(_ context.Context, req *usecase.CheckoutReq) (*usecase.CheckoutRes, error) {
	f.checkoutReq = req
	return f.checkoutRes, f.checkoutErr
}

func (f *fakeCheckoutUC) ConfirmPayment(_ context.Context, req *usecase.ConfirmPaymentReq) error {
	f.confirmReq = req
	return f.confirmErr
}

type testEnv struct {
	router   *chi.Mux
	ingest   *fakeIngestUC
	sales    *fakeSaleUC
	imports  *fakeImportUC
	dedupe   *fakeDedupeUC
	checkout *fakeCheckoutUC
}

func newTestEnv(t *testing.T, secrets WebhookSecrets, checks ...HealthCheck) *testEnv {
	t.Helper()

	env := &testEnv{
		router:   chi.NewRouter(),
		ingest:   &fakeIngestUC{},
		sales:    &fakeSaleUC{},
		imports:  &fakeImportUC{},
		dedupe:   &fakeDedupeUC{res: &usecase.DedupeRes{}},
		checkout: &fakeCheckoutUC{},
	}

	NewRouter(env.router, logger.NewNop()).Init(Deps{
		Ingest:       env.ingest,
		Sales:        env.sales,
		Import:       env.imports,
		Dedupe:       env.dedupe,
		Checkout:     env.checkout,
		Secrets:      secrets,
		Location:     time.UTC,
		MaxBodyBytes: 1 << 20,
		HealthChecks: checks,
	})

	return env
}

func (env *testEnv) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const posCompletedOrder = `{
	"type": "order.updated",
	"event_id": "evt-1",
	"data": {"id": "ORD-1", "object": {"order_updated": {
		"id": "ORD-1",
		"state": "COMPLETED",
		"line_items": [
			{"uid": "li-1", "catalog_object_id": "VAR-1", "quantity": "1", "name": "Veste", "total_money": {"amount": 16500, "currency": "EUR"}}
		]
	}}}
}`

func TestWebhook_POS_InvalidSignature(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{POS: "s3cret"})

	rec := env.do(http.MethodPost, "/webhooks/pos", posCompletedOrder, map[string]string{signatureHeader: "deadbeef"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.ingest.reqs)
}

func TestWebhook_POS_Processed(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{POS: "s3cret"})
	env.ingest.res = &usecase.IngestRes{Processed: 1}

	sig := ingest.Sign([]byte(posCompletedOrder), "s3cret")
	rec := env.do(http.MethodPost, "/webhooks/pos", posCompletedOrder, map[string]string{signatureHeader: sig})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["received"])
	assert.EqualValues(t, 1, body["processed"])

	require.Len(t, env.ingest.reqs, 1)
	ev := env.ingest.reqs[0].Event
	assert.Equal(t, domain.ChannelPOS, ev.Channel)
	require.Len(t, ev.Lines, 1)
	assert.Equal(t, "VAR-1", ev.Lines[0].ChannelObjectID)
}

func TestWebhook_InvalidPayloadIsAcknowledged(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})

	rec := env.do(http.MethodPost, "/webhooks/marketplace", "not json", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, true, body["ignored"])
	assert.Empty(t, env.ingest.reqs)
}

func TestWebhook_MarketplaceChallenge(t *testing.T) {
	secrets := WebhookSecrets{MarketplaceToken: "token", MarketplaceEndpointURL: "https://example.com/webhooks/marketplace"}
	env := newTestEnv(t, secrets)

	rec := env.do(http.MethodGet, "/webhooks/marketplace?challenge_code=abc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ingest.ChallengeResponse("abc", "token", secrets.MarketplaceEndpointURL), decodeBody(t, rec)["challengeResponse"])

	rec = env.do(http.MethodGet, "/webhooks/marketplace", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	noToken := newTestEnv(t, WebhookSecrets{})
	rec = noToken.do(http.MethodGet, "/webhooks/marketplace?challenge_code=abc", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhook_StorefrontPayment(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{Storefront: "s3cret"})
	payload := `{"sessionId":"sess-1","paymentRef":"pay-1","status":"PAID"}`

	rec := env.do(http.MethodPost, "/webhooks/storefront", payload, map[string]string{signatureHeader: ingest.Sign([]byte(payload), "s3cret")})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.checkout.confirmReq)
	assert.Equal(t, "sess-1", env.checkout.confirmReq.SessionID)
	assert.Equal(t, ingest.StorefrontStatusPaid, env.checkout.confirmReq.Status)
	_, ignored := decodeBody(t, rec)["ignored"]
	assert.False(t, ignored)
}

func TestAttribute(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})
	pid := "p-1"
	env.sales.attributeRes = &usecase.AttributeRes{
		Sale:     usecase.SaleInfo{ID: "s-1", ProduitID: &pid, RealizedPrice: 16550, Attribue: true},
		Quantity: 0,
		Sold:     true,
		Status:   domain.StatusOutOfStock,
	}

	rec := env.do(http.MethodPost, "/sales/attribute", `{"saleId":" s-1 ","produitId":"p-1"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &usecase.AttributeReq{SaleID: "s-1", ProduitID: "p-1"}, env.sales.attributeReq)

	body := decodeBody(t, rec)
	vente := body["vente"].(map[string]any)
	assert.InDelta(t, 165.5, vente["prixVenteReel"], 1e-9)
	assert.Equal(t, true, body["vendu"])
}

func TestAttribute_Conflict(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})
	env.sales.attributeErr = e.Wrap("s-1", e.ErrAlreadyAttributed)

	rec := env.do(http.MethodPost, "/sales/attribute", `{"saleId":"s-1","produitId":"p-1"}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, e.ErrAlreadyAttributed.Error(), decodeBody(t, rec)["error"])
}

func TestListSales(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})
	env.sales.sales = []usecase.SaleInfo{{ID: "s-1", RealizedPrice: 4000}}

	rec := env.do(http.MethodGet, "/sales?month=03-2025&attribue=false", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.sales.filter.From)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *env.sales.filter.From)
	assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), *env.sales.filter.To)
	require.NotNil(t, env.sales.filter.Attribue)
	assert.False(t, *env.sales.filter.Attribue)
	assert.EqualValues(t, 1, decodeBody(t, rec)["count"])

	rec = env.do(http.MethodGet, "/sales?month=2025-03", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteSale(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})

	rec := env.do(http.MethodDelete, "/sales/s-1", `{"remettreEnStock":true}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &usecase.DeleteSaleReq{SaleID: "s-1", Restock: true}, env.sales.deleteReq)

	rec = env.do(http.MethodDelete, "/sales/s-2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &usecase.DeleteSaleReq{SaleID: "s-2"}, env.sales.deleteReq)

	env.sales.deleteErr = e.ErrSaleNotFound
	rec = env.do(http.MethodDelete, "/sales/s-3?remettreEnStock=true", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, env.sales.deleteReq.Restock)
}

func TestImportSales(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})
	env.imports.res = &usecase.ImportRes{
		Imported: 1,
		Skipped:  1,
		Errors:   []usecase.ImportRowError{{Row: 1, Error: "invalid date"}},
	}

	rec := env.do(http.MethodPost, "/sales-reconciliation/import", `{"rows":[{"prix":"165,00 €"},{"prix":12}]}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.imports.req.Rows, 2)
	assert.Equal(t, json.Number("12"), env.imports.req.Rows[1]["prix"])

	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["imported"])
	errs := body["errors"].([]any)
	require.Len(t, errs, 1)
	assert.EqualValues(t, 1, errs[0].(map[string]any)["row"])

	env.imports.err = e.ErrTooManyRows
	rec = env.do(http.MethodPost, "/sales-reconciliation/import", `{"rows":[]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDedupe_DefaultsToDryRun(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})
	env.dedupe.res = &usecase.DedupeRes{
		Scanned:  3,
		Groups:   []usecase.DedupeGroup{{Day: "2025-03-01", Price: 4000, Size: 2, KeepID: "a", DeleteIDs: []string{"b"}}},
		ToDelete: 1,
	}

	rec := env.do(http.MethodPost, "/reconciliation/dedupe", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.dedupe.req.DryRun)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["dryRun"])
	group := body["groups"].([]any)[0].(map[string]any)
	assert.InDelta(t, 40.0, group["prix"], 1e-9)

	rec = env.do(http.MethodPost, "/reconciliation/dedupe", `{"dryRun":false,"month":"03-2025"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &usecase.DedupeReq{DryRun: false, Month: "03-2025"}, env.dedupe.req)
}

func TestCheckout(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})
	env.checkout.checkoutRes = &usecase.CheckoutRes{
		SessionID:   "sess-1",
		FinalPrice:  15025,
		Discount:    2475,
		DeliveryFee: 0,
		CheckoutURL: "https://pay.example.com/sess-1",
	}

	rec := env.do(http.MethodPost, "/checkout",
		`{"produitId":"p-1","basePrice":165,"buyerInfo":{"email":"a@b.fr"},"deliveryMode":"Pickup"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(16500), env.checkout.checkoutReq.BasePrice)
	assert.Equal(t, domain.DeliveryMode("pickup"), env.checkout.checkoutReq.DeliveryMode)

	body := decodeBody(t, rec)
	assert.InDelta(t, 150.25, body["finalPrice"], 1e-9)
	assert.InDelta(t, 24.75, body["discount"], 1e-9)
	assert.Equal(t, "sess-1", body["sessionId"])
}

func TestCheckout_PricePrecision(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{})

	rec := env.do(http.MethodPost, "/checkout", `{"produitId":"p-1","basePrice":165.555,"deliveryMode":"pickup"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, env.checkout.checkoutReq)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, WebhookSecrets{}, HealthCheck{Name: "postgres", Check: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "", nil).Code)

	env = newTestEnv(t, WebhookSecrets{}, HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("down") }})
	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
}

func TestToHTTPResponse(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{e.Wrap("x", e.ErrInvalidPrice), http.StatusBadRequest},
		{e.ErrInvalidMonth, http.StatusBadRequest},
		{e.Wrap("x", e.ErrProductNotFound), http.StatusNotFound},
		{e.ErrCheckoutSessionNotFound, http.StatusNotFound},
		{e.ErrInvalidSignature, http.StatusUnauthorized},
		{e.ErrInvalidVerificationToken, http.StatusForbidden},
		{e.ErrProductUnavailable, http.StatusConflict},
		{e.Wrap("x", e.ErrArchiveUnavailable), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		code, msg := ToHTTPResponse(c.err)
		assert.Equal(t, c.code, code, c.err.Error())
		assert.NotEmpty(t, msg)
	}
}

func TestParsePriceToCents(t *testing.T) {
	cents, err := parsePriceToCents("165")
	require.NoError(t, err)
	assert.Equal(t, int64(16500), cents)

	cents, err = parsePriceToCents("165.5")
	require.NoError(t, err)
	assert.Equal(t, int64(16550), cents)

	cents, err = parsePriceToCents("12.340")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), cents)

	_, err = parsePriceToCents("")
	assert.ErrorIs(t, err, e.ErrMissingFields)
	_, err = parsePriceToCents("-1")
	assert.ErrorIs(t, err, e.ErrInvalidPrice)
	_, err = parsePriceToCents("1000000.01")
	assert.ErrorIs(t, err, e.ErrInvalidPrice)
	_, err = parsePriceToCents("1.001")
	assert.ErrorIs(t, err, e.ErrPricePrecision)
}
