package service

import (
	"context"
	"fmt"
	"time"

	"github.com/teranga-pos/payments/internal/cache"
	"github.com/teranga-pos/payments/internal/models"
)

const methodCacheTTL = 60 * time.Second

// methodCacheEntry mirrors the fields the payment path needs. The model's
// Config is json:"-" so API responses never leak secrets; the cache value
// lives only in redis and must carry it.
type methodCacheEntry struct {
	ID           uint                   `json:"id"`
	TenantID     uint                   `json:"tenant_id"`
	ProviderCode string                 `json:"provider_code"`
	DisplayName  string                 `json:"display_name"`
	Config       map[string]interface{} `json:"config"`
}

func methodCacheKey(tenantID uint, providerCode string) string {
	return fmt.Sprintf("method:t:%d:%s", tenantID, providerCode)
}

// activeMethod resolves a tenant's provider config with a short cache in
// front of the database. Method edits show up within the TTL; in-flight
// payments keep the client they were initiated with anyway.
func (s *PaymentService) activeMethod(ctx context.Context, tenantID uint, providerCode string) (*models.PaymentMethod, error) {
	key := methodCacheKey(tenantID, providerCode)

	var cached methodCacheEntry
	if hit, err := cache.GetJSON(ctx, key, &cached); err == nil && hit && cached.ID != 0 {
		return &models.PaymentMethod{
			ID:           cached.ID,
			TenantID:     cached.TenantID,
			ProviderCode: cached.ProviderCode,
			DisplayName:  cached.DisplayName,
			IsActive:     true,
			Config:       models.JSON(cached.Config),
		}, nil
	}

	method, err := s.methodRepo.GetActiveByCode(tenantID, providerCode)
	if err != nil {
		return nil, err
	}
	if method != nil {
		_ = cache.SetJSON(ctx, key, methodCacheEntry{
			ID:           method.ID,
			TenantID:     method.TenantID,
			ProviderCode: method.ProviderCode,
			DisplayName:  method.DisplayName,
			Config:       map[string]interface{}(method.Config),
		}, methodCacheTTL)
	}
	return method, nil
}
