package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type UserOperations struct{}

func (o *UserOperations) CreateUser(ctx context.Context, u *User) error {
	result, err := GetDB().ExecContext(ctx, InsertUser, u.Username, u.PasswordHash, u.Email)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	return nil
}

func (o *UserOperations) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u := &User{}
	err := GetDB().QueryRowContext(ctx, GetUserByID, id).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (o *UserOperations) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u := &User{}
	err := GetDB().QueryRowContext(ctx, GetUserByUsername, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return u, nil
}

func (o *UserOperations) SetProfilePicture(ctx context.Context, id int64, image string) error {
	_, err := GetDB().ExecContext(ctx, UpdateUserProfilePicture, image, id)
	if err != nil {
		return fmt.Errorf("failed to update profile picture: %w", err)
	}
	return nil
}

func (o *UserOperations) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := GetDB().ExecContext(ctx, UpdateUserPassword, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

type HistoryOperations struct{}

func (o *HistoryOperations) CreateHistoryItem(ctx context.Context, item *HistoryItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := GetDB().ExecContext(ctx, InsertHistoryItem,
		item.ID, item.Topic, item.Content, item.Image, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create history item: %w", err)
	}
	return nil
}

func (o *HistoryOperations) GetHistoryItemByID(ctx context.Context, id string) (*HistoryItem, error) {
	item := &HistoryItem{}
	err := GetDB().QueryRowContext(ctx, GetHistoryItemByID, id).Scan(
		&item.ID, &item.Topic, &item.Content, &item.Image, &item.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get history item: %w", err)
	}
	return item, nil
}

func (o *HistoryOperations) ListHistoryItems(ctx context.Context, limit, offset int) ([]*HistoryItem, error) {
	rows, err := GetDB().QueryContext(ctx, ListHistoryItems, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list history items: %w", err)
	}
	defer rows.Close()

	var items []*HistoryItem
	for rows.Next() {
		item := &HistoryItem{}
		if err := rows.Scan(&item.ID, &item.Topic, &item.Content, &item.Image, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (o *HistoryOperations) CountHistoryItems(ctx context.Context) (int, error) {
	var count int
	if err := GetDB().QueryRowContext(ctx, CountHistoryItems).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history items: %w", err)
	}
	return count, nil
}

func (o *HistoryOperations) DeleteHistoryItem(ctx context.Context, id string) error {
	result, err := GetDB().ExecContext(ctx, DeleteHistoryItem, id)
	if err != nil {
		return fmt.Errorf("failed to delete history item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (o *HistoryOperations) ClearHistory(ctx context.Context) error {
	_, err := GetDB().ExecContext(ctx, ClearHistoryItems)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

type WebhookOperations struct{}

func (o *WebhookOperations) CreateWebhook(ctx context.Context, w *Webhook) error {
	result, err := GetDB().ExecContext(ctx, InsertWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get webhook id: %w", err)
	}
	w.ID = id
	return nil
}

func (o *WebhookOperations) GetWebhookByID(ctx context.Context, id int64) (*Webhook, error) {
	w := &Webhook{}
	err := GetDB().QueryRowContext(ctx, GetWebhookByID, id).Scan(
		&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &w.Enabled, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return w, nil
}

func (o *WebhookOperations) ListWebhooks(ctx context.Context) ([]*Webhook, error) {
	rows, err := GetDB().QueryContext(ctx, ListWebhooks)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []*Webhook
	for rows.Next() {
		w := &Webhook{}
		if err := rows.Scan(
			&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &w.Enabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (o *WebhookOperations) UpdateWebhook(ctx context.Context, w *Webhook) error {
	_, err := GetDB().ExecContext(ctx, UpdateWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	return nil
}

func (o *WebhookOperations) DeleteWebhook(ctx context.Context, id int64) error {
	result, err := GetDB().ExecContext(ctx, DeleteWebhook, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type SettingsOperations struct{}

func (o *SettingsOperations) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{Key: key}
	err := GetDB().QueryRowContext(ctx, GetSetting, key).Scan(&s.Value, &s.Encrypted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return s, nil
}

func (o *SettingsOperations) SetSetting(ctx context.Context, key, value string, encrypted bool) error {
	_, err := GetDB().ExecContext(ctx, SetSetting, key, value, encrypted, value, encrypted)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (o *SettingsOperations) DeleteSetting(ctx context.Context, key string) error {
	_, err := GetDB().ExecContext(ctx, DeleteSetting, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

var (
	Users    = &UserOperations{}
	History  = &HistoryOperations{}
	Webhooks = &WebhookOperations{}
	Settings = &SettingsOperations{}
)
