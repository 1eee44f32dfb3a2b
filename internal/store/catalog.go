package store

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/erazemk/znamke/internal/model"
	"github.com/erazemk/znamke/internal/slug"
)

const catalogColumns = `id, name, year, country, value, width, height, topics,
	catalog_number, image_mime, slug, source_url, created_at`

func scanCatalogItem(row interface{ Scan(...any) error }) (*model.CatalogItem, error) {
	c := &model.CatalogItem{}
	var topics string
	var number, mime, source sql.NullString
	err := row.Scan(&c.ID, &c.Name, &c.Year, &c.Country, &c.Value, &c.Width, &c.Height, &topics,
		&number, &mime, &c.Slug, &source, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(topics), &c.Topics); err != nil {
		return nil, fmt.Errorf("decoding topics of catalog item %d: %w", c.ID, err)
	}
	c.CatalogNumber = number.String
	c.ImageMime = mime.String
	c.SourceURL = source.String
	return c, nil
}

// CatalogSlug returns the base slug for a catalog item.
func CatalogSlug(c model.CatalogItem) string {
	return slug.Make(c.Name, strconv.Itoa(c.Year), c.Value.String())
}

// CreateCatalogItem creates a catalog item. An empty slug is derived from
// the name, year and value; a numeric suffix keeps it unique.
func CreateCatalogItem(ctx context.Context, db *sql.DB, c model.CatalogItem) (*model.CatalogItem, error) {
	if c.Topics == nil {
		c.Topics = []string{}
	}
	topics, err := json.Marshal(c.Topics)
	if err != nil {
		return nil, fmt.Errorf("encoding topics: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if c.Slug == "" {
		c.Slug, err = uniqueSlug(ctx, tx, CatalogSlug(c))
		if err != nil {
			return nil, err
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO catalog_items (name, year, country, value, width, height, topics, catalog_number, slug, source_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Year, c.Country, c.Value.String(), c.Width, c.Height, string(topics),
		nullString(c.CatalogNumber), c.Slug, nullString(c.SourceURL),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("creating catalog item %q: %w", c.Name, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("creating catalog item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting catalog item id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing catalog item: %w", err)
	}

	return GetCatalogItem(ctx, db, id)
}

func uniqueSlug(ctx context.Context, tx *sql.Tx, base string) (string, error) {
	base = cmp.Or(base, "stamp")
	candidate := base
	for n := 2; ; n++ {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM catalog_items WHERE slug = ?)`, candidate,
		).Scan(&exists)
		if err != nil {
			return "", fmt.Errorf("checking slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// GetCatalogItem returns a catalog item by ID.
func GetCatalogItem(ctx context.Context, db *sql.DB, id int64) (*model.CatalogItem, error) {
	c, err := scanCatalogItem(db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog item: %w", err)
	}
	return c, nil
}

// GetCatalogItemBySlug returns a catalog item by slug.
func GetCatalogItemBySlug(ctx context.Context, db *sql.DB, s string) (*model.CatalogItem, error) {
	c, err := scanCatalogItem(db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE slug = ?`, s,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog item by slug: %w", err)
	}
	return c, nil
}

// ListCatalogItems returns one page of the catalog ordered by name. Pages
// are numbered from 1.
func ListCatalogItems(ctx context.Context, db *sql.DB, page, perPage int) (*model.Page[model.CatalogItem], error) {
	page = max(page, 1)
	if perPage <= 0 {
		perPage = 50
	}

	result := &model.Page[model.CatalogItem]{Items: []model.CatalogItem{}, Page: page, PerPage: perPage}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&result.Total); err != nil {
		return nil, fmt.Errorf("counting catalog items: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items ORDER BY name, id LIMIT ? OFFSET ?`,
		perPage, (page-1)*perPage,
	)
	if err != nil {
		return nil, fmt.Errorf("listing catalog items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning catalog item: %w", err)
		}
		result.Items = append(result.Items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing catalog items: %w", err)
	}
	return result, nil
}

// DeleteCatalogItem deletes a catalog item nobody owns a copy of.
func DeleteCatalogItem(ctx context.Context, db *sql.DB, id int64) error {
	var owned bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM stamps WHERE catalog_id = ?)`, id,
	).Scan(&owned)
	if err != nil {
		return fmt.Errorf("checking catalog item usage: %w", err)
	}
	if owned {
		return fmt.Errorf("deleting catalog item %d: %w", id, ErrInUse)
	}

	result, err := db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting catalog item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCatalogImage sets a catalog item's image data.
func SetCatalogImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE catalog_items SET image = ?, image_mime = ? WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting catalog image: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCatalogImage returns a catalog item's image data and MIME type.
func GetCatalogImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM catalog_items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting catalog image: %w", err)
	}
	return image, mime.String, nil
}

// UpdateSlugs recomputes every catalog slug from its item's current fields
// and returns how many changed. Items are processed in ID order, so older
// items keep the unsuffixed slug on collisions.
func UpdateSlugs(ctx context.Context, db *sql.DB) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items ORDER BY id`,
	)
	if err != nil {
		return 0, fmt.Errorf("listing catalog items: %w", err)
	}
	var items []model.CatalogItem
	for rows.Next() {
		c, err := scanCatalogItem(rows)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning catalog item: %w", err)
		}
		items = append(items, *c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing catalog items: %w", err)
	}

	used := make(map[string]bool, len(items))
	want := make([]string, len(items))
	for i, c := range items {
		base := cmp.Or(CatalogSlug(c), "stamp")
		s := base
		for n := 2; used[s]; n++ {
			s = base + "-" + strconv.Itoa(n)
		}
		used[s] = true
		want[i] = s
	}

	// Park changed slugs first so swaps never hit the unique index.
	changed := 0
	for i, c := range items {
		if c.Slug == want[i] {
			continue
		}
		changed++
		if _, err := tx.ExecContext(ctx,
			`UPDATE catalog_items SET slug = ? WHERE id = ?`, "~"+strconv.FormatInt(c.ID, 10), c.ID,
		); err != nil {
			return 0, fmt.Errorf("parking slug: %w", err)
		}
	}
	for i, c := range items {
		if c.Slug == want[i] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE catalog_items SET slug = ? WHERE id = ?`, want[i], c.ID,
		); err != nil {
			return 0, fmt.Errorf("updating slug: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing slugs: %w", err)
	}
	return changed, nil
}
