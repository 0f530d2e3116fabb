package billing

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/abroun/paddlesync/app/models"
	"github.com/abroun/paddlesync/internal/pkg/paddle"
)

// SyncPlans pulls every subscription plan from the vendors API and upserts
// it locally. Returns the number of plans processed.
func (s *Service) SyncPlans(ctx context.Context) (int, error) {
	plans, err := s.api.ListPlans(ctx, "")
	if err != nil {
		return 0, err
	}
	for i := range plans {
		if _, err := s.SyncPlanData(&plans[i]); err != nil {
			return i, err
		}
	}
	return len(plans), nil
}

// SyncPlanFromAPI fetches a single plan by id and upserts it. Used by the
// reconciler to self-heal a referential gap before writing a subscription.
func (s *Service) SyncPlanFromAPI(ctx context.Context, planID string) (*models.Plan, error) {
	data, err := s.api.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return s.SyncPlanData(data)
}

// SyncPlanData upserts one plan payload. Scalar plan fields are get-or-create
// (first-seen values win); the price list has no merge key beyond
// (plan, currency, recurring), so it is dropped and recreated wholesale.
func (s *Service) SyncPlanData(data *paddle.PlanData) (*models.Plan, error) {
	plan := &models.Plan{
		ID:            strconv.Itoa(data.ID),
		Name:          data.Name,
		BillingType:   data.BillingType,
		BillingPeriod: data.BillingPeriod,
		TrialDays:     data.TrialDays,
	}
	if _, err := s.repo.GetOrCreatePlan(plan); err != nil {
		return nil, err
	}

	prices := make([]models.Price, 0, len(data.InitialPrice)+len(data.RecurringPrice))
	initial, err := pricesFromMap(plan.ID, data.InitialPrice, false)
	if err != nil {
		return nil, err
	}
	recurring, err := pricesFromMap(plan.ID, data.RecurringPrice, true)
	if err != nil {
		return nil, err
	}
	prices = append(prices, initial...)
	prices = append(prices, recurring...)

	if err := s.repo.ReplacePlanPrices(plan.ID, prices); err != nil {
		return nil, err
	}
	plan.Prices = prices
	return plan, nil
}

func pricesFromMap(planID string, amounts map[string]string, recurring bool) ([]models.Price, error) {
	currencies := make([]string, 0, len(amounts))
	for currency := range amounts {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	prices := make([]models.Price, 0, len(amounts))
	for _, currency := range currencies {
		quantity, err := strconv.ParseFloat(amounts[currency], 64)
		if err != nil {
			return nil, fmt.Errorf("billing: invalid price %q for currency %s", amounts[currency], currency)
		}
		prices = append(prices, models.Price{
			PlanID:    planID,
			Currency:  currency,
			Quantity:  quantity,
			Recurring: recurring,
		})
	}
	return prices, nil
}

// SyncProducts pulls every one-time product from the vendors API and creates
// the ones not seen before. Existing rows are never updated.
func (s *Service) SyncProducts(ctx context.Context) (int, error) {
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	for i := range products {
		if _, err := s.SyncProductData(&products[i]); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

// SyncProductFromAPI resolves a single product by id. The API cannot filter
// by product id, so the full list is fetched and filtered locally.
func (s *Service) SyncProductFromAPI(ctx context.Context, productID string) (*models.Product, error) {
	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if strconv.Itoa(products[i].ID) == productID {
			return s.SyncProductData(&products[i])
		}
	}
	return nil, fmt.Errorf("billing: product %s not found in vendors API", productID)
}

// SyncProductData get-or-creates one product payload; first-seen wins.
func (s *Service) SyncProductData(data *paddle.ProductData) (*models.Product, error) {
	product := &models.Product{
		ID:          strconv.Itoa(data.ID),
		Name:        data.Name,
		Description: data.Description,
		BasePrice:   data.BasePrice,
		SalePrice:   data.SalePrice,
		Currency:    data.Currency,
		Icon:        data.Icon,
	}
	if _, err := s.repo.GetOrCreateProduct(product); err != nil {
		return nil, err
	}
	return product, nil
}
