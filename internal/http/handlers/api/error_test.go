package api

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/teranga-pos/payments/internal/service"

	"github.com/gin-gonic/gin"
)

func mappedResponseCode(t *testing.T, err error, rules []mappedHandlerError) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondWithMappedError(c, err, rules, 500, "fallback")

	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal envelope failed: %v (%s)", err, w.Body.String())
	}
	return resp.StatusCode
}

// A concurrent initiate that loses the idempotency claim before the winner
// persisted its row has nothing to replay; the contract is a 409 and the
// caller retries into a normal dedupe.
func TestCreatePaymentInFlightClaimMapsToConflict(t *testing.T) {
	if got := mappedResponseCode(t, service.ErrIdempotencyInFlight, paymentCreateErrorRules); got != 409 {
		t.Fatalf("in-flight idempotency claim want 409 got %d", got)
	}
}

func TestPaymentErrorRuleMapping(t *testing.T) {
	cases := []struct {
		err   error
		rules []mappedHandlerError
		want  int
	}{
		{service.ErrPaymentInvalid, paymentCreateErrorRules, 400},
		{service.ErrProviderNotConfigured, paymentCreateErrorRules, 400},
		{service.ErrRefundManualRequired, paymentRefundErrorRules, 422},
		{service.ErrPaymentNotFound, paymentRefundErrorRules, 404},
		{service.ErrDrawerAlreadyOpen, drawerErrorRules, 409},
		{fmt.Errorf("unmapped"), paymentCreateErrorRules, 500},
	}
	for _, tc := range cases {
		if got := mappedResponseCode(t, tc.err, tc.rules); got != tc.want {
			t.Fatalf("%v want %d got %d", tc.err, tc.want, got)
		}
	}
}
