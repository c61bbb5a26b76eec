package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/orderflow-backend/pkg/errors"
	"github.com/angelmondragon/orderflow-backend/pkg/pagination"
)

type lineBody struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"nope","quantity":0}`))
	var body lineBody
	err := DecodeJSONBody(req, &body)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	require.Equal(t, "must be a valid uuid", details["product_id"])
	require.Equal(t, "must be greater than 0", details["quantity"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"`+uuid.NewString()+`","quantity":1,"price":1}`))
	var body lineBody
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(DecodeJSONBody(req, &body)).Code())
}

func TestParsePagination(t *testing.T) {
	params, err := ParsePagination(httptest.NewRequest(http.MethodGet, "/?cursor=abc", nil))
	require.NoError(t, err)
	require.Equal(t, pagination.Params{Limit: pagination.DefaultLimit, Cursor: "abc"}, params)

	_, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=1000", nil))
	require.Error(t, err)
}

func TestParseQueryOrderStatus(t *testing.T) {
	status, err := ParseQueryOrderStatus(httptest.NewRequest(http.MethodGet, "/?status=paid", nil), "status")
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, *status)

	status, err = ParseQueryOrderStatus(httptest.NewRequest(http.MethodGet, "/", nil), "status")
	require.NoError(t, err)
	require.Nil(t, status)

	_, err = ParseQueryOrderStatus(httptest.NewRequest(http.MethodGet, "/?status=shipped", nil), "status")
	require.Error(t, err)
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseURLUUID(req, "orderId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("orderId", "bad")
	_, err = ParseURLUUID(req, "orderId")
	require.Error(t, err)
}

func TestDecodeJSONBodyRejectsEmptyAndOversizedBodies(t *testing.T) {
	var body lineBody
	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.Equal(t, "request body is required", pkgerrors.As(DecodeJSONBody(empty, &body)).Message())

	huge := `{"product_id":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	oversized := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	typed := pkgerrors.As(DecodeJSONBody(oversized, &body))
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, map[string]any{"limit_bytes": int64(MaxBodyBytes)}, typed.Details())
}

func TestDecodeJSONBodyRejectsTrailingObjects(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/",
		strings.NewReader(`{"product_id":"`+id+`","quantity":1}{"product_id":"`+id+`","quantity":1}`))
	var body lineBody
	require.Error(t, DecodeJSONBody(req, &body))
}

func TestDecodeJSONBodyReportsUpperBound(t *testing.T) {
	var body struct {
		Quantity int `json:"quantity" validate:"gt=0,lte=10000"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":10001}`))
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	require.NotNil(t, typed)
	require.Equal(t, map[string]string{"quantity": "must be at most 10000"}, typed.Details())
}
