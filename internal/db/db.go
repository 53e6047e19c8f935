package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/WellingtonFilho7/lumine-sync/internal/models"
)

// Meta is a key/value row persisting sync metadata across restarts
// (dataRev, lastSync, deviceId).
type Meta struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Well-known meta keys.
const (
	MetaDataRev  = "dataRev"
	MetaLastSync = "lastSync"
	MetaDeviceID = "deviceId"
)

// DB wraps the local sqlite store. Callers get a handle from Open and
// pass it down explicitly; there is no package-level connection.
type DB struct {
	conn *gorm.DB
}

// Open opens (or creates) the agent database at path.
func Open(path string) (*DB, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := conn.AutoMigrate(
		&models.Child{},
		&models.DailyRecord{},
		&Meta{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	// Lookup index GORM doesn't auto-create from struct tags.
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_rec_child ON daily_records(child_internal_id)")

	return &DB{conn: conn}, nil
}

func (d *DB) Conn() *gorm.DB { return d.conn }

// GetMeta returns the stored value for key, or "" when unset.
func (d *DB) GetMeta(key string) string {
	var m Meta
	if err := d.conn.First(&m, "key = ?", key).Error; err != nil {
		return ""
	}
	return m.Value
}

func (d *DB) SetMeta(key, value string) error {
	m := Meta{Key: key, Value: value}
	return d.conn.Save(&m).Error
}

// Children returns the full local child collection.
func (d *DB) Children() ([]models.Child, error) {
	var out []models.Child
	if err := d.conn.Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Records returns the full local daily-record collection.
func (d *DB) Records() ([]models.DailyRecord, error) {
	var out []models.DailyRecord
	if err := d.conn.Order("created_at").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DB) SaveChild(c *models.Child) error {
	return d.conn.Save(c).Error
}

func (d *DB) SaveRecord(r *models.DailyRecord) error {
	return d.conn.Save(r).Error
}

func (d *DB) GetChild(id string) (*models.Child, error) {
	var c models.Child
	if err := d.conn.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteChildCascade removes a child and every daily record that
// belongs to it, in one transaction.
func (d *DB) DeleteChildCascade(id string) error {
	return d.conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DailyRecord{}, "child_internal_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Child{}, "id = ?", id).Error
	})
}

// ReplaceAll swaps the entire local dataset for the given one. Used by
// download, which always wins over local state.
func (d *DB) ReplaceAll(children []models.Child, records []models.DailyRecord) error {
	return d.conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.DailyRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Child{}).Error; err != nil {
			return err
		}
		for i := range children {
			if err := tx.Create(&children[i]).Error; err != nil {
				return err
			}
		}
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
