package main

import (
	"flag"
	"fmt"

	"github.com/teranga-pos/payments/internal/config"
	"github.com/teranga-pos/payments/internal/constants"
	"github.com/teranga-pos/payments/internal/logger"
	"github.com/teranga-pos/payments/internal/models"
)

// Seeds a tenant with sandbox payment method configs so a fresh install can
// take test payments without touching the database by hand. Replace the
// placeholder credentials before pointing it at anything real.
func main() {
	var tenantID uint64
	flag.Uint64Var(&tenantID, "tenant", 1, "tenant id to seed")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("failed to migrate database: %v", err)
	}

	methods := []models.PaymentMethod{
		{
			ProviderCode: constants.ProviderWave,
			DisplayName:  "Wave",
			SortOrder:    1,
			Config: models.JSON(map[string]interface{}{
				"api_key":        "wave_sn_test_api_key",
				"webhook_secret": "wave_sn_test_webhook_secret",
			}),
		},
		{
			ProviderCode: constants.ProviderOrange,
			DisplayName:  "Orange Money",
			SortOrder:    2,
			Config: models.JSON(map[string]interface{}{
				"client_id":     "om_test_client_id",
				"client_secret": "om_test_client_secret",
				"merchant_key":  "om_test_merchant_key",
			}),
		},
		{
			ProviderCode: constants.ProviderMTNMoMo,
			DisplayName:  "MTN Mobile Money",
			SortOrder:    3,
			Config: models.JSON(map[string]interface{}{
				"subscription_key": "momo_test_subscription_key",
				"api_user":         "momo_test_api_user",
				"api_key":          "momo_test_api_key",
				"target_env":       "sandbox",
			}),
		},
		{
			ProviderCode: constants.ProviderFlutterwave,
			DisplayName:  "Flutterwave",
			SortOrder:    4,
			Config: models.JSON(map[string]interface{}{
				"secret_key": "FLWSECK_TEST-placeholder",
				"verif_hash": "flw_test_verif_hash",
			}),
		},
		{
			ProviderCode: constants.ProviderPaystack,
			DisplayName:  "Paystack",
			SortOrder:    5,
			Config: models.JSON(map[string]interface{}{
				"secret_key": "sk_test_placeholder",
			}),
		},
		{
			ProviderCode: constants.ProviderCinetPay,
			DisplayName:  "CinetPay",
			SortOrder:    6,
			Config: models.JSON(map[string]interface{}{
				"api_key":    "cinetpay_test_api_key",
				"site_id":    "123456",
				"secret_key": "cinetpay_test_secret",
			}),
		},
		{
			ProviderCode: constants.ProviderPayDunya,
			DisplayName:  "PayDunya",
			SortOrder:    7,
			Config: models.JSON(map[string]interface{}{
				"master_key":  "paydunya_test_master_key",
				"private_key": "test_private_key",
				"token":       "test_token",
				"store_name":  "Boutique Test",
				"sandbox":     true,
			}),
		},
		{
			ProviderCode: constants.ProviderCash,
			DisplayName:  "Espèces",
			SortOrder:    8,
			Config:       models.JSON(map[string]interface{}{}),
		},
	}

	created := 0
	for i := range methods {
		method := &methods[i]
		method.TenantID = uint(tenantID)
		method.IsActive = true

		var existing models.PaymentMethod
		err := models.DB.
			Where("tenant_id = ? AND provider_code = ?", method.TenantID, method.ProviderCode).
			Limit(1).Find(&existing).Error
		if err != nil {
			stdLog.Fatalf("lookup %s failed: %v", method.ProviderCode, err)
		}
		if existing.ID != 0 {
			continue
		}
		if err := models.DB.Create(method).Error; err != nil {
			stdLog.Fatalf("create %s failed: %v", method.ProviderCode, err)
		}
		created++
	}

	fmt.Printf("tenant %d: %d payment methods created, %d already present\n",
		tenantID, created, len(methods)-created)
}
