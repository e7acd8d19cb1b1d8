package lending

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/unicode/norm"

	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func normalizeItem(in model.ItemInput) (model.ItemInput, error) {
	in.Name = norm.NFC.String(strings.TrimSpace(in.Name))
	if err := model.Validate(in); err != nil {
		return in, err
	}
	return in, nil
}

// CreateItem adds an item to the catalog.
func (s *Service) CreateItem(ctx context.Context, in model.ItemInput) (*model.Item, error) {
	in, err := normalizeItem(in)
	if err != nil {
		return nil, err
	}

	var item *model.Item
	err = db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		item, err = store.CreateItem(ctx, tx, in.Name, *in.Quantity, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem overwrites the name and quantity of an item. Lowering the
// quantity below the number of borrowed units is allowed.
func (s *Service) UpdateItem(ctx context.Context, id int64, in model.ItemInput) (*model.Item, error) {
	in, err := normalizeItem(in)
	if err != nil {
		return nil, err
	}

	var item *model.Item
	err = db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		existing, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return &model.NotFoundError{Entity: "item", ID: id}
		}

		if err := store.UpdateItem(ctx, tx, id, in.Name, *in.Quantity, s.now()); err != nil {
			return err
		}
		item, err = store.GetItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes an item permanently and returns it. Its borrow requests
// stay in place and are listed with an empty item name.
func (s *Service) DeleteItem(ctx context.Context, id int64) (*model.Item, error) {
	var item *model.Item
	err := db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		item, err = store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return &model.NotFoundError{Entity: "item", ID: id}
		}
		return store.DeleteItem(ctx, tx, id)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns a single item.
func (s *Service) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &model.NotFoundError{Entity: "item", ID: id}
	}
	return item, nil
}

// ListItems returns every item with its availability, ordered by name.
func (s *Service) ListItems(ctx context.Context) ([]model.ItemAvailability, error) {
	items, err := store.ListItemsWithAvailability(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.sortItems(items)
	return items, nil
}

// sortItems orders items by name, case-insensitively under the configured
// collation. Equal names keep id order.
func (s *Service) sortItems(items []model.ItemAvailability) {
	c := collate.New(s.collation, collate.IgnoreCase)
	slices.SortStableFunc(items, func(a, b model.ItemAvailability) int {
		return c.CompareString(a.Name, b.Name)
	})
}

// SetItemPhoto stores a processed photo for an item.
func (s *Service) SetItemPhoto(ctx context.Context, id int64, r io.Reader) error {
	photo, err := imaging.Process(r)
	if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
		return model.NewValidationError("image", err.Error())
	}
	if err != nil {
		return err
	}

	return db.RunInTx(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		item, err := store.GetItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return &model.NotFoundError{Entity: "item", ID: id}
		}
		return store.SetItemImage(ctx, tx, id, photo.Data, photo.MIME, s.now())
	})
}

// ItemPhoto returns the stored photo of an item and its MIME type.
func (s *Service) ItemPhoto(ctx context.Context, id int64) ([]byte, string, error) {
	data, mime, err := store.GetItemImage(ctx, s.db, id)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", &model.NotFoundError{Entity: "item photo", ID: id}
	}
	return data, mime, nil
}
