// Package handler implements HTTP handlers of the storefront and admin API.
package handler

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/rookgm/bundlehub/internal/handler/http CheckoutService,AdminOrderService,CatalogueService,StorefrontService,AuthService,HealthService,TokenVerifier
