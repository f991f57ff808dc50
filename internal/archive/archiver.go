package archive

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Archiver moves history rows older than the retention window out of the
// main database into monthly archive databases under the archive path. It
// runs once a day; RunArchive can also be invoked on demand from the API.
type Archiver struct {
	db          *sql.DB
	archivePath string
	archiveDays int
	stopCh      chan struct{}
	mu          sync.Mutex
}

type ArchiveFile struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	ItemCount int       `json:"item_count"`
}

type Config struct {
	ArchivePath string
	ArchiveDays int
}

func NewArchiver(database *sql.DB, cfg Config) (*Archiver, error) {
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = "./data/archives"
	}
	if cfg.ArchiveDays <= 0 {
		cfg.ArchiveDays = 30
	}

	if err := os.MkdirAll(cfg.ArchivePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Archiver{
		db:          database,
		archivePath: cfg.ArchivePath,
		archiveDays: cfg.ArchiveDays,
		stopCh:      make(chan struct{}),
	}, nil
}

func (a *Archiver) Start() {
	go a.runDailyArchive()
}

func (a *Archiver) Stop() {
	close(a.stopCh)
}

func (a *Archiver) runDailyArchive() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.RunArchive()
		}
	}
}

func (a *Archiver) RunArchive() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -a.archiveDays)

	items, err := a.itemsForArchival(cutoff)
	if err != nil {
		return fmt.Errorf("failed to get items for archival: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	archiveDBPath := filepath.Join(a.archivePath, fmt.Sprintf("archive_%s.db", time.Now().Format("2006_01")))

	archiveDB, err := a.openOrCreateArchiveDB(archiveDBPath)
	if err != nil {
		return fmt.Errorf("failed to create archive database: %w", err)
	}
	defer archiveDB.Close()

	tx, err := archiveDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin archive transaction: %w", err)
	}

	for _, item := range items {
		if err := a.insertItemToArchive(tx, item); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert item to archive: %w", err)
		}
	}

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO archive_metadata (id, archived_at, source_database)
		VALUES (1, ?, 'main')
	`, time.Now()); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update archive metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	if err := a.deleteArchivedItems(items); err != nil {
		return fmt.Errorf("failed to delete archived items: %w", err)
	}

	return nil
}

type archivedItem struct {
	ID        string
	Topic     string
	Content   string
	Image     *string
	CreatedAt time.Time
}

func (a *Archiver) itemsForArchival(cutoff time.Time) ([]*archivedItem, error) {
	rows, err := a.db.Query(`
		SELECT id, topic, content, image, created_at
		FROM history_items
		WHERE created_at < ?
		ORDER BY created_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*archivedItem
	for rows.Next() {
		item := &archivedItem{}
		if err := rows.Scan(&item.ID, &item.Topic, &item.Content, &item.Image, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (a *Archiver) openOrCreateArchiveDB(path string) (*sql.DB, error) {
	archiveDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = archiveDB.Exec(`
		CREATE TABLE IF NOT EXISTS history_items (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			content TEXT NOT NULL,
			image TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS archive_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			archived_at DATETIME,
			source_database TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_archive_history_created_at ON history_items(created_at);
	`)
	if err != nil {
		archiveDB.Close()
		return nil, err
	}

	return archiveDB, nil
}

func (a *Archiver) insertItemToArchive(tx *sql.Tx, item *archivedItem) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO history_items (id, topic, content, image, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, item.ID, item.Topic, item.Content, item.Image, item.CreatedAt)
	return err
}

func (a *Archiver) deleteArchivedItems(items []*archivedItem) error {
	tx, err := a.db.Begin()
	if err != nil {
		return err
	}

	for _, item := range items {
		if _, err := tx.Exec("DELETE FROM history_items WHERE id = ?", item.ID); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ListArchives returns the archive files on disk, newest first.
func (a *Archiver) ListArchives() ([]*ArchiveFile, error) {
	entries, err := os.ReadDir(a.archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var files []*ArchiveFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		file := &ArchiveFile{
			Filename:  entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		file.ItemCount, _ = a.countArchiveItems(filepath.Join(a.archivePath, entry.Name()))
		files = append(files, file)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Filename > files[j].Filename
	})
	return files, nil
}

func (a *Archiver) countArchiveItems(path string) (int, error) {
	archiveDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, err
	}
	defer archiveDB.Close()

	var count int
	if err := archiveDB.QueryRow("SELECT COUNT(*) FROM history_items").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
