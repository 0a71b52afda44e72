package syncapp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplysync/backend/internal/domain/catalog"
	"github.com/supplysync/backend/internal/domain/shared"
	"github.com/supplysync/backend/internal/domain/supplier"
)

func isBlankSKU(sku string) bool {
	return strings.TrimSpace(sku) == ""
}

// upsertTree writes the product, its variants, the supplier link and the
// product gallery for one mapped item. Existing products and variants are
// reused as found; only the link is refreshed.
func (s *Service) upsertTree(
	ctx context.Context,
	repos supplier.SyncRepositories,
	account *supplier.ProviderAccount,
	mapped *supplier.NormalizedProduct,
	link *supplier.SupplierProduct,
	hash string,
	now time.Time,
	delta *supplier.SyncCounts,
) error {
	product, err := getOrCreateProduct(ctx, repos.Products(), mapped.Product)
	if err != nil {
		return err
	}
	delta.ProductsUpserted++

	var last *catalog.Variant
	for _, rec := range mapped.Variants {
		if isBlankSKU(rec.SKU) {
			delta.VariantsSkipped++
			continue
		}
		variant, err := getOrCreateVariant(ctx, repos.Variants(), product.ID, rec)
		if err != nil {
			return err
		}
		delta.VariantsUpserted++
		last = variant
	}

	if last != nil {
		if link == nil {
			link = &supplier.SupplierProduct{
				BaseEntity:        shared.NewBaseEntity(),
				ProviderAccountID: account.ID,
				ExternalID:        mapped.External.ExternalID,
			}
		}
		synced := now
		link.VariantID = last.ID
		link.Raw = mapped.Raw
		link.RawHash = hash
		link.IsActive = true
		link.LastSyncedAt = &synced
		link.UpdatedAt = now
		if err := repos.SupplierProducts().Upsert(ctx, link); err != nil {
			return err
		}
		delta.LinksUpserted++
	}

	if s.cfg.AttachMedia && len(mapped.Media) > 0 {
		created, err := attachProductMedia(ctx, repos.Media(), product, mapped.Media)
		if err != nil {
			return err
		}
		delta.MediaCreated += created
	}
	return nil
}

// getOrCreateProduct finds a product by exact title or creates it with
// description, brand and active flag only.
func getOrCreateProduct(ctx context.Context, repo catalog.ProductRepository, fields supplier.ProductFields) (*catalog.Product, error) {
	title := strings.TrimSpace(fields.Title)
	existing, err := repo.FindByTitle(ctx, title)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, catalog.ErrProductNotFound) {
		return nil, err
	}

	product, err := catalog.NewProduct(title, fields.Description, fields.Brand)
	if err != nil {
		return nil, err
	}
	product.IsActive = fields.IsActive
	if err := repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// getOrCreateVariant finds a variant by SKU or creates it under productID
func getOrCreateVariant(ctx context.Context, repo catalog.VariantRepository, productID uuid.UUID, rec supplier.VariantRecord) (*catalog.Variant, error) {
	sku := strings.TrimSpace(rec.SKU)
	existing, err := repo.FindBySKU(ctx, sku)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, catalog.ErrVariantNotFound) {
		return nil, err
	}

	currency, err := catalog.ParseCurrency(string(rec.Currency))
	if err != nil {
		return nil, err
	}
	variant, err := catalog.NewVariant(productID, sku, rec.Price, currency)
	if err != nil {
		return nil, err
	}
	variant.SetAttributes(rec.Attributes)
	variant.SetWeight(rec.Weight)
	variant.SetDims(rec.Dims)
	variant.IsActive = rec.IsActive
	if err := repo.Create(ctx, variant); err != nil {
		return nil, err
	}
	return variant, nil
}

// attachProductMedia adds external image URLs missing from the product-level
// gallery. The first new item becomes main only when the gallery is empty.
func attachProductMedia(ctx context.Context, repo catalog.MediaRepository, product *catalog.Product, refs []supplier.MediaRef) (int, error) {
	known, err := repo.ProductExternalURLs(ctx, product.ID)
	if err != nil {
		return 0, err
	}
	hasMedia, err := repo.ProductHasMedia(ctx, product.ID)
	if err != nil {
		return 0, err
	}

	created := 0
	pid := product.ID
	for _, ref := range refs {
		url := strings.TrimSpace(ref.URL)
		if url == "" || known[url] {
			continue
		}
		media, err := catalog.NewExternalMedia(&pid, nil, url, product.Title, !hasMedia)
		if err != nil {
			return created, err
		}
		if err := repo.Create(ctx, media); err != nil {
			return created, err
		}
		known[url] = true
		hasMedia = true
		created++
	}
	return created, nil
}
