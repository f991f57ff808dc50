package db

const (
	InsertUser = `
		INSERT INTO users (username, password_hash, email)
		VALUES (?, ?, ?)
	`

	GetUserByID = `
		SELECT id, username, password_hash, email, profile_picture, created_at, updated_at
		FROM users WHERE id = ?
	`

	GetUserByUsername = `
		SELECT id, username, password_hash, email, profile_picture, created_at, updated_at
		FROM users WHERE username = ?
	`

	UpdateUserProfilePicture = `
		UPDATE users SET profile_picture = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`

	UpdateUserPassword = `
		UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`
)

const (
	InsertHistoryItem = `
		INSERT INTO history_items (id, topic, content, image, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	GetHistoryItemByID = `
		SELECT id, topic, content, image, created_at
		FROM history_items WHERE id = ?
	`

	ListHistoryItems = `
		SELECT id, topic, content, image, created_at
		FROM history_items ORDER BY created_at DESC LIMIT ? OFFSET ?
	`

	CountHistoryItems = `SELECT COUNT(*) FROM history_items`

	DeleteHistoryItem = `DELETE FROM history_items WHERE id = ?`

	ClearHistoryItems = `DELETE FROM history_items`
)

const (
	InsertWebhook = `
		INSERT INTO webhooks (name, url, secret, events_json, enabled)
		VALUES (?, ?, ?, ?, ?)
	`

	GetWebhookByID = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE id = ?
	`

	ListWebhooks = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks ORDER BY name ASC
	`

	UpdateWebhook = `
		UPDATE webhooks SET name = ?, url = ?, secret = ?, events_json = ?, enabled = ?
		WHERE id = ?
	`

	DeleteWebhook = `DELETE FROM webhooks WHERE id = ?`
)

const (
	GetSetting = `SELECT value, encrypted FROM settings WHERE key = ?`

	SetSetting = `
		INSERT INTO settings (key, value, encrypted) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, encrypted = ?, updated_at = CURRENT_TIMESTAMP
	`

	DeleteSetting = `DELETE FROM settings WHERE key = ?`
)
