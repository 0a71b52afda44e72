package importapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/supplysync/backend/internal/domain/bulk"
	"github.com/supplysync/backend/internal/domain/catalog"
	csvimport "github.com/supplysync/backend/internal/infrastructure/import"
	"github.com/supplysync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CommitRequest applies an upload to the catalog
type CommitRequest struct {
	Token string
	// Upsert updates variants whose SKU exists; otherwise those rows are skipped
	Upsert  bool
	DryRun  bool
	Mapping map[string]string
	// ImportedBy is recorded on the import log when known
	ImportedBy *uuid.UUID
}

// CommitResult summarizes a commit
type CommitResult struct {
	LogID  uuid.UUID            `json:"log_id"`
	Counts bulk.CommitCounts    `json:"counts"`
	Errors []bulk.RowErrorEntry `json:"errors"`
	DryRun bool                 `json:"dry_run"`
}

// rowOutcome is what one upserted row changed
type rowOutcome struct {
	productCreated bool
	variantCreated bool
	mediaCreated   int
	inventory      bulk.StockMode
	// product resolved for the row's product_key
	product *catalog.Product
}

// Commit replays the preview pipeline over every row of the upload and
// upserts each valid row in its own transaction. A failing row is recorded
// and does not stop the others. One import log is written per call.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (result *CommitResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "import", "Commit",
		telemetry.WithAttributes(telemetry.AttrDryRun.Bool(req.DryRun)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	doc, err := s.load(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	rows, _, err := s.classify(ctx, doc, req.Mapping, req.Upsert)
	if err != nil {
		return nil, err
	}

	var counts bulk.CommitCounts
	rowErrors := make([]bulk.RowErrorEntry, 0)
	// products resolved in this run by product_key, so later variants join them
	products := make(map[string]*catalog.Product)

	for i := range rows {
		row := &rows[i]
		switch row.Action {
		case bulk.RowActionError:
			counts.Errored++
			rowErrors = append(rowErrors, bulk.RowErrorEntry{RowIndex: row.RowIndex, Error: strings.Join(row.Errors, "; ")})
			continue
		case bulk.RowActionSkip:
			counts.Skipped++
			continue
		}

		if req.DryRun {
			tallyDryRun(&counts, row)
			continue
		}

		var out rowOutcome
		err := s.scope.Execute(ctx, func(repos catalog.TransactionalRepositories) error {
			var err error
			out, err = upsertRow(ctx, repos, &row.NormalizedRow, products)
			return err
		})
		if err != nil {
			counts.Errored++
			rowErrors = append(rowErrors, bulk.RowErrorEntry{RowIndex: row.RowIndex, Error: err.Error()})
			s.logger.Warn("import.row_failed",
				zap.Int("row_index", row.RowIndex),
				zap.String("sku", row.SKU),
				zap.Error(err),
			)
			continue
		}

		if key := row.ProductKey; key != "" && out.product != nil {
			if _, cached := products[key]; !cached {
				products[key] = out.product
			}
		}
		if out.productCreated {
			counts.ProductsCreated++
		} else {
			counts.ProductsUpdated++
		}
		if out.variantCreated {
			counts.VariantsCreated++
		} else {
			counts.VariantsUpdated++
		}
		counts.MediaCreated += out.mediaCreated
		switch out.inventory {
		case bulk.StockModeSet:
			counts.InventorySet++
		case bulk.StockModeIncrement:
			counts.InventoryIncremented++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	importLog, err := bulk.NewImportLog(req.Token, req.Upsert, req.DryRun, req.ImportedBy)
	if err != nil {
		return nil, err
	}
	importLog.Record(counts, rowErrors)
	if err := s.logs.Create(ctx, importLog); err != nil {
		return nil, fmt.Errorf("failed to save import log: %w", err)
	}
	s.metrics.RecordImport(ctx, counts, req.DryRun)

	s.logger.Info("import.commit",
		zap.String("token", req.Token),
		zap.Bool("dry_run", req.DryRun),
		zap.Int("rows", len(rows)),
		zap.Int("variants_created", counts.VariantsCreated),
		zap.Int("variants_updated", counts.VariantsUpdated),
		zap.Int("errored", counts.Errored),
	)

	return &CommitResult{
		LogID:  importLog.ID,
		Counts: counts,
		Errors: rowErrors,
		DryRun: req.DryRun,
	}, nil
}

// tallyDryRun counts what a row would change. Counts are per row, so
// products and media may be overcounted compared to a real commit.
func tallyDryRun(counts *bulk.CommitCounts, row *bulk.PreviewRow) {
	switch row.Action {
	case bulk.RowActionCreate:
		counts.ProductsCreated++
		counts.VariantsCreated++
	case bulk.RowActionUpdate:
		counts.ProductsUpdated++
		counts.VariantsUpdated++
	}
	for _, url := range row.MediaURLs {
		if url != "" {
			counts.MediaCreated++
		}
	}
	if row.QtyAvailable != "" {
		if row.StockMode == bulk.StockModeIncrement {
			counts.InventoryIncremented++
		} else {
			counts.InventorySet++
		}
	}
}

// upsertRow writes one validated row: taxonomy, product, variant, inventory
// and variant media. products holds products already resolved by product_key.
func upsertRow(ctx context.Context, repos catalog.TransactionalRepositories, row *bulk.NormalizedRow, products map[string]*catalog.Product) (rowOutcome, error) {
	var out rowOutcome

	price, err := decimal.NewFromString(row.Price)
	if err != nil {
		return out, errors.New("price must be a valid number (Decimal).")
	}
	currency := catalog.Currency(strings.ToUpper(row.Currency))
	if !currency.IsValid() {
		currency = catalog.DefaultCurrency
	}
	var weight *decimal.Decimal
	if row.Weight != "" {
		if w, err := decimal.NewFromString(row.Weight); err == nil {
			weight = &w
		}
	}

	category, sub, err := resolveTaxonomy(ctx, repos.Categories(), row.CategoryName, row.SubcategoryName)
	if err != nil {
		return out, err
	}

	variant, err := repos.Variants().FindBySKU(ctx, row.SKU)
	if err != nil && !errors.Is(err, catalog.ErrVariantNotFound) {
		return out, err
	}

	var product *catalog.Product
	if variant != nil {
		product, err = repos.Products().FindByID(ctx, variant.ProductID)
		if err != nil {
			return out, err
		}
		if err := product.Rename(row.Title); err != nil {
			return out, err
		}
		product.SetDescription(row.Description)
		if err := product.SetBrand(row.Brand); err != nil {
			return out, err
		}
		if category != nil {
			if err := product.AssignTaxonomy(category, sub); err != nil {
				return out, err
			}
		}
		if err := repos.Products().Update(ctx, product); err != nil {
			return out, err
		}

		if err := variant.SetPrice(price, currency); err != nil {
			return out, err
		}
		variant.SetAttributes(row.Attributes)
		variant.SetWeight(weight)
		variant.SetDims(row.Dims)
		variant.Activate()
		if err := repos.Variants().Update(ctx, variant); err != nil {
			return out, err
		}
	} else {
		product = products[row.ProductKey]
		if row.ProductKey == "" || product == nil {
			product, err = catalog.NewProduct(row.Title, row.Description, row.Brand)
			if err != nil {
				return out, err
			}
			if category != nil {
				if err := product.AssignTaxonomy(category, sub); err != nil {
					return out, err
				}
			}
			if err := repos.Products().Create(ctx, product); err != nil {
				return out, err
			}
			out.productCreated = true
		}

		variant, err = catalog.NewVariant(product.ID, row.SKU, price, currency)
		if err != nil {
			return out, err
		}
		variant.SetAttributes(row.Attributes)
		variant.SetWeight(weight)
		variant.SetDims(row.Dims)
		if err := repos.Variants().Create(ctx, variant); err != nil {
			return out, err
		}
		out.variantCreated = true
	}
	out.product = product

	if row.HasInventory() {
		out.inventory, err = applyInventory(ctx, repos.Inventories(), variant.ID, row)
		if err != nil {
			return out, err
		}
	}

	out.mediaCreated, err = attachVariantMedia(ctx, repos.Media(), variant, row.MediaURLs, row.Title)
	if err != nil {
		return out, err
	}
	return out, nil
}

func resolveTaxonomy(ctx context.Context, repo catalog.CategoryRepository, categoryName, subName string) (*catalog.Category, *catalog.Subcategory, error) {
	if categoryName == "" {
		return nil, nil, nil
	}
	category, err := repo.GetOrCreateCategory(ctx, categoryName)
	if err != nil {
		return nil, nil, err
	}
	if subName == "" {
		return category, nil, nil
	}
	sub, err := repo.GetOrCreateSubcategory(ctx, category.ID, subName)
	if err != nil {
		return nil, nil, err
	}
	return category, sub, nil
}

// applyInventory updates the variant's inventory and reports which
// quantity mode ran, or "" when only safety stock or warehouse changed.
func applyInventory(ctx context.Context, repo catalog.InventoryRepository, variantID uuid.UUID, row *bulk.NormalizedRow) (bulk.StockMode, error) {
	inv, err := repo.FindByVariantForUpdate(ctx, variantID)
	if errors.Is(err, catalog.ErrInventoryNotFound) {
		inv, err = catalog.NewInventory(variantID), nil
	}
	if err != nil {
		return "", err
	}

	var mode bulk.StockMode
	if row.QtyAvailable != "" {
		qty, err := csvimport.ParseInt(row.QtyAvailable)
		if err != nil {
			return "", errors.New("qty_available must be integer.")
		}
		if row.StockMode == bulk.StockModeIncrement {
			inv.IncrementQuantity(qty)
			mode = bulk.StockModeIncrement
		} else {
			inv.SetQuantity(qty)
			mode = bulk.StockModeSet
		}
	}
	if row.SafetyStock != "" {
		safety, err := csvimport.ParseInt(row.SafetyStock)
		if err != nil {
			return "", errors.New("safety_stock must be integer.")
		}
		inv.SetSafetyStock(safety)
	}
	inv.SetWarehouse(row.Warehouse)

	if err := repo.Save(ctx, inv); err != nil {
		return "", err
	}
	return mode, nil
}

// attachVariantMedia adds external URLs missing from the variant gallery.
// The first URL becomes the main image only when the gallery was empty.
func attachVariantMedia(ctx context.Context, repo catalog.MediaRepository, variant *catalog.Variant, urls []string, alt string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	existing, err := repo.VariantExternalURLs(ctx, variant.ID)
	if err != nil {
		return 0, err
	}
	hasMedia, err := repo.VariantHasMedia(ctx, variant.ID)
	if err != nil {
		return 0, err
	}

	created := 0
	for idx, url := range urls {
		if url == "" || existing[url] {
			continue
		}
		isMain := !hasMedia && created == 0 && idx == 0
		media, err := catalog.NewExternalMedia(nil, variant, url, alt, isMain)
		if err != nil {
			return created, err
		}
		if err := repo.Create(ctx, media); err != nil {
			return created, err
		}
		existing[url] = true
		hasMedia = true
		created++
	}
	return created, nil
}
