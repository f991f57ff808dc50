package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"quillpress/internal/db"
)

// Store keeps the local record of generated articles. Appends are
// best-effort from the automation engine's point of view; a failed write is
// logged by the engine and never blocks a run. Old rows are moved out of the
// main database by the archiver, not deleted here.
type Store struct {
	displayLimit int
}

func NewStore() *Store {
	return &Store{displayLimit: 50}
}

func (s *Store) Append(ctx context.Context, topic, content, image string) (*db.HistoryItem, error) {
	item := &db.HistoryItem{
		ID:      uuid.NewString(),
		Topic:   topic,
		Content: content,
	}
	if image != "" {
		item.Image = &image
	}

	if err := db.History.CreateHistoryItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to append history item: %w", err)
	}
	return item, nil
}

// List returns the most recent items, newest first, capped for display.
func (s *Store) List(ctx context.Context) ([]*db.HistoryItem, error) {
	return db.History.ListHistoryItems(ctx, s.displayLimit, 0)
}

func (s *Store) Get(ctx context.Context, id string) (*db.HistoryItem, error) {
	return db.History.GetHistoryItemByID(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return db.History.DeleteHistoryItem(ctx, id)
}

func (s *Store) Clear(ctx context.Context) error {
	return db.History.ClearHistory(ctx)
}
